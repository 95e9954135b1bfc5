package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/passport-office-scheduling/internal/api"
	"github.com/hackgods/passport-office-scheduling/internal/calendar"
	"github.com/hackgods/passport-office-scheduling/internal/config"
	"github.com/hackgods/passport-office-scheduling/internal/db"
	"github.com/hackgods/passport-office-scheduling/internal/logging"
)

type SimConfig struct {
	APIBaseURL   string
	Duration     time.Duration
	Workers      int
	DaysAhead    int
	SubjectLimit int
	SlotLimit    int

	BookRatio       float64
	CancelRatio     float64
	RescheduleRatio float64
	SearchRatio     float64
	ReadRatio       float64
}

type Metrics struct {
	Book       OperationMetrics
	Cancel     OperationMetrics
	Reschedule OperationMetrics
	Search     OperationMetrics
	Read       OperationMetrics
}

type Simulator struct {
	cfg     SimConfig
	data    *Dataset
	client  *http.Client
	log     *logging.Logger
	metrics Metrics
}

func main() {
	base, err := config.Load()
	if err != nil {
		logging.Default().Fatal("config load error", "error", err)
	}
	log := logging.New(logging.Config{
		Level:   base.LogLevel,
		Format:  base.LogFormat,
		Service: "simulate",
	})

	cfg := loadConfig()
	if err := validateConfig(cfg); err != nil {
		log.Fatal("invalid simulator config", "error", err)
	}
	log.Info("simulator starting",
		"duration", cfg.Duration, "workers", cfg.Workers,
		"book", cfg.BookRatio, "cancel", cfg.CancelRatio, "reschedule", cfg.RescheduleRatio,
		"search", cfg.SearchRatio, "read", cfg.ReadRatio)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, base.PostgresDSN, db.DefaultPoolConfig())
	if err != nil {
		log.Fatal("connect postgres", "error", err)
	}
	defer pool.Close()

	sim := &Simulator{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
		log:    log,
	}

	if err := sim.prewarm(ctx); err != nil {
		log.Fatal("prewarm slots", "error", err)
	}
	if sim.data, err = loadDataset(ctx, pool, cfg); err != nil {
		log.Fatal("load dataset", "error", err)
	}
	log.Info("dataset loaded",
		"submitters", len(sim.data.Submitters), "collectors", len(sim.data.Collectors), "slots", len(sim.data.Slots))

	sim.Run()
	sim.PrintReport(os.Stdout)

	violations, err := capacityViolations(context.Background(), pool)
	if err != nil {
		log.Fatal("capacity check", "error", err)
	}
	for _, v := range violations {
		log.Error("slot capacity violated",
			"slot_id", v.SlotID, "current_bookings", v.CurrentBookings,
			"max_capacity", v.MaxCapacity, "holding_appointments", v.Holding)
	}
	if len(violations) > 0 {
		os.Exit(1)
	}
	log.Info("capacity check passed")
}

func loadConfig() SimConfig {
	cfg := SimConfig{
		APIBaseURL:      strings.TrimRight(getEnv("SIM_API_BASE_URL", "http://localhost:8080"), "/"),
		Duration:        getDuration("SIM_DURATION", 30*time.Second),
		Workers:         getInt("SIM_WORKERS", 10),
		DaysAhead:       getInt("SIM_DAYS_AHEAD", 7),
		SubjectLimit:    getInt("SIM_SUBJECT_LIMIT", 2000),
		SlotLimit:       getInt("SIM_SLOT_LIMIT", 500),
		BookRatio:       getFloat("SIM_BOOK_RATIO", 0.4),
		CancelRatio:     getFloat("SIM_CANCEL_RATIO", 0.1),
		RescheduleRatio: getFloat("SIM_RESCHEDULE_RATIO", 0.1),
		SearchRatio:     getFloat("SIM_SEARCH_RATIO", 0.2),
		ReadRatio:       getFloat("SIM_READ_RATIO", 0.2),
	}

	total := cfg.BookRatio + cfg.CancelRatio + cfg.RescheduleRatio + cfg.SearchRatio + cfg.ReadRatio
	if total > 0 {
		cfg.BookRatio /= total
		cfg.CancelRatio /= total
		cfg.RescheduleRatio /= total
		cfg.SearchRatio /= total
		cfg.ReadRatio /= total
	}
	return cfg
}

func validateConfig(cfg SimConfig) error {
	if cfg.Workers <= 0 {
		return fmt.Errorf("SIM_WORKERS must be > 0")
	}
	if cfg.Duration <= 0 {
		return fmt.Errorf("SIM_DURATION must be > 0")
	}
	if cfg.DaysAhead < 1 || cfg.DaysAhead > 90 {
		return fmt.Errorf("SIM_DAYS_AHEAD must be between 1 and 90")
	}
	if cfg.SubjectLimit <= 0 || cfg.SlotLimit <= 0 {
		return fmt.Errorf("SIM_SUBJECT_LIMIT and SIM_SLOT_LIMIT must be > 0")
	}
	return nil
}

// prewarm asks the API to materialise slots so the dataset has something
// to book against on a fresh database.
func (s *Simulator) prewarm(ctx context.Context) error {
	var out api.GenerateSlotsResponse
	status, err := s.do(ctx, http.MethodPost, "/admin/generate-slots", api.GenerateSlotsRequest{DaysAhead: s.cfg.DaysAhead}, &out)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("generate-slots returned %d", status)
	}
	s.log.Info("slots prewarmed", "created", out.SlotsCreated, "days_ahead", s.cfg.DaysAhead)
	return nil
}

func (s *Simulator) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.Duration)
	defer cancel()

	var wg sync.WaitGroup
	for i := 0; i < s.cfg.Workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			s.worker(ctx, workerID)
		}(i)
	}
	wg.Wait()
	s.log.Info("simulation complete")
}

func (s *Simulator) worker(ctx context.Context, workerID int) {
	rng := rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), uint64(workerID)))

	for ctx.Err() == nil {
		r := rng.Float64()
		switch {
		case r < s.cfg.BookRatio:
			s.doBook(ctx, rng)
		case r < s.cfg.BookRatio+s.cfg.CancelRatio:
			s.doCancel(ctx, rng)
		case r < s.cfg.BookRatio+s.cfg.CancelRatio+s.cfg.RescheduleRatio:
			s.doReschedule(ctx, rng)
		case r < 1-s.cfg.ReadRatio:
			s.doSearch(ctx, rng)
		default:
			s.doRead(ctx, rng)
		}
	}
}

type appointmentBody struct {
	ID               uuid.UUID `json:"id"`
	ConfirmationCode string    `json:"confirmation_code"`
}

func (s *Simulator) doBook(ctx context.Context, rng *rand.Rand) {
	subjectID, kind, ok := s.data.RandomSubject(rng)
	if !ok {
		return
	}
	sl := s.data.RandomSlot(rng)

	var out appointmentBody
	start := time.Now()
	status, err := s.do(ctx, http.MethodPost, "/appointments", api.CreateAppointmentRequest{
		SubjectID:       subjectID,
		LocationID:      sl.LocationID,
		TimeSlotID:      sl.ID,
		AppointmentType: kind,
	}, &out)
	s.record(ctx, &s.metrics.Book, start, status, err, http.StatusCreated)

	if err == nil && status == http.StatusCreated {
		s.data.AddBooking(booking{ID: out.ID, Code: out.ConfirmationCode, Slot: sl})
	}
}

func (s *Simulator) doCancel(ctx context.Context, rng *rand.Rand) {
	b, ok := s.data.TakeBooking(rng)
	if !ok {
		return
	}
	start := time.Now()
	status, err := s.do(ctx, http.MethodDelete, "/appointments/"+b.ID.String()+"/cancel",
		api.CancelRequest{Reason: "Load test cancellation"}, nil)
	s.record(ctx, &s.metrics.Cancel, start, status, err, http.StatusOK)
}

func (s *Simulator) doReschedule(ctx context.Context, rng *rand.Rand) {
	b, ok := s.data.TakeBooking(rng)
	if !ok {
		return
	}
	target := s.data.SlotNear(rng, b.Slot)

	var out appointmentBody
	start := time.Now()
	status, err := s.do(ctx, http.MethodPut, "/appointments/"+b.ID.String()+"/reschedule",
		api.RescheduleRequest{NewTimeSlotID: target.ID, Reason: "load test"}, &out)
	s.record(ctx, &s.metrics.Reschedule, start, status, err, http.StatusOK)

	switch {
	case err == nil && status == http.StatusOK:
		s.data.AddBooking(booking{ID: out.ID, Code: out.ConfirmationCode, Slot: target})
	case err == nil && (status == http.StatusConflict || status == http.StatusUnprocessableEntity):
		// a rejected move leaves the original booking in place
		s.data.AddBooking(b)
	}
}

func (s *Simulator) doSearch(ctx context.Context, rng *rand.Rand) {
	sl := s.data.RandomSlot(rng)
	start := time.Now()
	status, err := s.do(ctx, http.MethodPost, "/availability/check", api.AvailabilityRequest{
		LocationID:       sl.LocationID,
		PreferredDate:    calendar.FormatDate(sl.Date),
		AlternativeDates: []string{calendar.FormatDate(calendar.AddDays(sl.Date, 1))},
	}, nil)
	s.record(ctx, &s.metrics.Search, start, status, err, http.StatusOK)
}

func (s *Simulator) doRead(ctx context.Context, rng *rand.Rand) {
	b, ok := s.data.PeekBooking(rng)
	if !ok {
		return
	}
	path := "/appointments/" + b.ID.String()
	if rng.IntN(2) == 0 {
		path = "/appointments/code/" + b.Code
	}
	start := time.Now()
	status, err := s.do(ctx, http.MethodGet, path, nil, nil)
	s.record(ctx, &s.metrics.Read, start, status, err, http.StatusOK)
}

func (s *Simulator) record(ctx context.Context, om *OperationMetrics, start time.Time, status int, err error, want int) {
	latency := time.Since(start)
	if err != nil {
		// requests cut off by the end of the run are not failures
		if ctx.Err() != nil {
			return
		}
		om.Record(latency, outcomeError)
		return
	}
	om.Record(latency, classify(status, want))
}

// classify treats 409 and 422 as business rejections under contention.
func classify(status, want int) outcome {
	switch status {
	case want:
		return outcomeSuccess
	case http.StatusConflict, http.StatusUnprocessableEntity:
		return outcomeConflict
	default:
		return outcomeError
	}
}

func (s *Simulator) do(ctx context.Context, method, path string, body, out any) (int, error) {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return 0, err
		}
		rd = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.cfg.APIBaseURL+path, rd)
	if err != nil {
		return 0, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if out != nil && resp.StatusCode < 300 {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("decode %s %s: %w", method, path, err)
		}
		return resp.StatusCode, nil
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode, nil
}

func (s *Simulator) PrintReport(w io.Writer) {
	line := strings.Repeat("=", 80)
	fmt.Fprintln(w, "\n"+line)
	fmt.Fprintln(w, "SIMULATION REPORT")
	fmt.Fprintln(w, line)
	fmt.Fprintf(w, "Duration: %s\n", s.cfg.Duration)
	fmt.Fprintf(w, "Workers: %d\n\n", s.cfg.Workers)

	s.metrics.Book.report(w, "Book")
	s.metrics.Cancel.report(w, "Cancel")
	s.metrics.Reschedule.report(w, "Reschedule")
	s.metrics.Search.report(w, "Availability check")
	s.metrics.Read.report(w, "Read")
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}
