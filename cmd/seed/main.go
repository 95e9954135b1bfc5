package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/brianvoe/gofakeit/v7"

	"github.com/hackgods/passport-office-scheduling/internal/app"
	"github.com/hackgods/passport-office-scheduling/internal/config"
	"github.com/hackgods/passport-office-scheduling/internal/location"
	"github.com/hackgods/passport-office-scheduling/internal/logging"
	"github.com/hackgods/passport-office-scheduling/internal/subject"
)

const (
	defaultSubjects = 500
	batchSize       = 100
)

// statusWeights skews seeded applications toward the statuses that can book.
var statusWeights = []struct {
	status subject.Status
	weight int
}{
	{subject.StatusSubmitted, 35},
	{subject.StatusReadyForPickup, 30},
	{subject.StatusUnderReview, 8},
	{subject.StatusDocumentsRequired, 7},
	{subject.StatusProcessing, 8},
	{subject.StatusQualityCheck, 5},
	{subject.StatusCollected, 4},
	{subject.StatusExpired, 2},
	{subject.StatusRejected, 1},
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Default().Fatal("config load error", "error", err)
	}

	log := logging.New(logging.Config{
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
		Service: "seed",
	})
	log.Info("seed starting")

	ctx := context.Background()
	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatal("startup failed", "error", err)
	}
	defer a.Close()

	gofakeit.Seed(time.Now().UnixNano())

	offices, err := loadCatalogue(os.Getenv("SEED_OFFICES_FILE"))
	if err != nil {
		log.Fatal("load office catalogue", "error", err)
	}
	if err := seedOffices(ctx, a, offices); err != nil {
		log.Fatal("seed offices", "error", err)
	}

	count := defaultSubjects
	if v := os.Getenv("SEED_SUBJECTS"); v != "" {
		if count, err = strconv.Atoi(v); err != nil || count < 0 {
			log.Fatal("invalid SEED_SUBJECTS", "value", v)
		}
	}
	if err := seedSubjects(ctx, a, count); err != nil {
		log.Fatal("seed subjects", "error", err)
	}

	log.Info("seed complete")
}

// seedOffices creates the offices whose names are not already present, so
// the seeder can be re-run against a populated database.
func seedOffices(ctx context.Context, a *app.App, offices []location.CreateInput) error {
	existing, err := a.Locations.List(ctx, false)
	if err != nil {
		return err
	}
	have := make(map[string]bool, len(existing))
	for _, l := range existing {
		have[l.Name] = true
	}

	created := 0
	for _, in := range offices {
		if have[in.Name] {
			a.Log.Debug("office exists, skipping", "name", in.Name)
			continue
		}
		loc, err := a.Locations.Create(ctx, in)
		if err != nil {
			return fmt.Errorf("create %q: %w", in.Name, err)
		}
		a.Log.Info("office created", "name", loc.Name, "location_id", loc.ID)
		created++
	}
	a.Log.Info("offices seeded", "created", created, "skipped", len(offices)-created)
	return nil
}

func seedSubjects(ctx context.Context, a *app.App, count int) error {
	a.Log.Info("seeding subjects", "count", count)
	store := subject.NewPgStore(a.Pool)

	for start := 0; start < count; start += batchSize {
		n := min(batchSize, count-start)
		err := a.Tx.WithTx(ctx, func(ctx context.Context) error {
			for i := 0; i < n; i++ {
				if _, err := store.Create(ctx, fakeSubject()); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return err
		}
		a.Log.Debug("subject batch inserted", "offset", start, "size", n)
	}
	return nil
}

func fakeSubject() *subject.Subject {
	phone := gofakeit.Numerify("+266 5### ####")
	return &subject.Subject{
		ReferenceNumber: gofakeit.Numerify("LS-####-######"),
		ApplicantName:   gofakeit.Name(),
		Phone:           &phone,
		Status:          pickStatus(gofakeit.Number(1, totalWeight())),
	}
}

func totalWeight() int {
	total := 0
	for _, w := range statusWeights {
		total += w.weight
	}
	return total
}

// pickStatus maps a roll in [1, totalWeight()] onto statusWeights.
func pickStatus(roll int) subject.Status {
	for _, w := range statusWeights {
		if roll <= w.weight {
			return w.status
		}
		roll -= w.weight
	}
	return subject.StatusSubmitted
}
