package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/lib/pq"

	"github.com/healthsnap/backend/internal/infrastructure/clients/postgres"
	"github.com/healthsnap/backend/pkg/config"
)

const schema = `
CREATE TABLE IF NOT EXISTS doctors (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	specialty TEXT NOT NULL,
	hospital TEXT,
	location TEXT,
	languages TEXT[] NOT NULL DEFAULT '{}',
	accepted_insurance TEXT[] NOT NULL DEFAULT '{}',
	rating DOUBLE PRECISION NOT NULL DEFAULT 0,
	years_experience INTEGER NOT NULL DEFAULT 0,
	bio TEXT,
	image_url TEXT,
	available BOOLEAN NOT NULL DEFAULT TRUE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS time_slots (
	id TEXT PRIMARY KEY,
	doctor_id TEXT NOT NULL REFERENCES doctors(id),
	start_time TIMESTAMPTZ NOT NULL,
	end_time TIMESTAMPTZ NOT NULL,
	is_booked BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_time_slots_doctor_open
	ON time_slots (doctor_id, start_time) WHERE is_booked = FALSE;

CREATE TABLE IF NOT EXISTS voice_notes (
	id TEXT PRIMARY KEY,
	patient_id TEXT NOT NULL,
	transcript TEXT NOT NULL,
	duration_seconds DOUBLE PRECISION NOT NULL DEFAULT 0,
	provider TEXT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS risk_assessments (
	id TEXT PRIMARY KEY,
	acuity TEXT NOT NULL,
	payload JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS reports (
	id TEXT PRIMARY KEY,
	patient_id TEXT NOT NULL,
	voice_note_id TEXT NOT NULL REFERENCES voice_notes(id),
	risk_assessment_id TEXT NOT NULL REFERENCES risk_assessments(id),
	clinical_summary JSONB NOT NULL,
	next_steps JSONB NOT NULL,
	doctor_matching JSONB,
	analysis_metadata JSONB NOT NULL,
	disclaimer TEXT NOT NULL,
	status TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_reports_patient ON reports (patient_id, created_at DESC);

CREATE TABLE IF NOT EXISTS appointments (
	id TEXT PRIMARY KEY,
	patient_id TEXT NOT NULL,
	doctor_id TEXT NOT NULL REFERENCES doctors(id),
	time_slot_id TEXT NOT NULL REFERENCES time_slots(id),
	report_id TEXT,
	status TEXT NOT NULL,
	notes TEXT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

type seedDoctor struct {
	name      string
	specialty string
	hospital  string
	location  string
	languages []string
	insurance []string
	rating    float64
	years     int
	bio       string
}

var seedDoctors = []seedDoctor{
	{"Dr. Amara Okafor", "cardiologist", "St. Mary's Medical Center", "Downtown", []string{"English", "Igbo"}, []string{"Aetna", "BlueCross"}, 4.8, 15, "Interventional cardiologist focused on preventive care."},
	{"Dr. James Chen", "pulmonologist", "Riverside General", "Eastside", []string{"English", "Mandarin"}, []string{"UnitedHealth", "Cigna"}, 4.6, 12, "Treats asthma, COPD, and sleep-disordered breathing."},
	{"Dr. Priya Sharma", "primary-care", "Community Health Clinic", "Midtown", []string{"English", "Hindi"}, []string{"Aetna", "Medicaid"}, 4.7, 9, "Family physician with a chronic disease management focus."},
	{"Dr. Luis Herrera", "gastroenterologist", "Riverside General", "Eastside", []string{"English", "Spanish"}, []string{"BlueCross"}, 4.5, 18, "Endoscopy and inflammatory bowel disease."},
	{"Dr. Sarah Kim", "neurologist", "St. Mary's Medical Center", "Downtown", []string{"English", "Korean"}, []string{"Cigna", "Aetna"}, 4.9, 11, "Headache and movement disorder specialist."},
	{"Dr. Michael Adeyemi", "primary-care", "Northgate Family Practice", "Northgate", []string{"English", "Yoruba"}, []string{"UnitedHealth", "Medicaid"}, 4.3, 6, "General practice and urgent triage."},
	{"Dr. Elena Petrova", "dermatologist", "Community Health Clinic", "Midtown", []string{"English", "Russian"}, []string{"Aetna"}, 4.4, 14, "Medical and surgical dermatology."},
	{"Dr. David Osei", "orthopedist", "Northgate Family Practice", "Northgate", []string{"English"}, []string{"BlueCross", "Cigna"}, 4.2, 20, "Sports injuries and joint replacement."},
}

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	pgClient, err := postgres.NewClient(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to DB: %v", err)
	}
	defer pgClient.Close()

	ctx := context.Background()

	if os.Getenv("RESET_DB") == "true" {
		log.Println("RESET_DB=true detected, truncating tables before seeding")
		_, err := pgClient.DB().ExecContext(ctx, `
			TRUNCATE TABLE
				appointments,
				reports,
				risk_assessments,
				voice_notes,
				time_slots,
				doctors
			RESTART IDENTITY CASCADE
		`)
		if err != nil && os.Getenv("SKIP_TRUNCATE_ERRORS") != "true" {
			log.Fatalf("Failed to reset tables: %v", err)
		}
	}

	if _, err := pgClient.DB().ExecContext(ctx, schema); err != nil {
		log.Fatalf("Failed to create schema: %v", err)
	}
	log.Println("Schema ensured")

	db := goqu.New("postgres", pgClient.DB())
	now := time.Now()

	for _, d := range seedDoctors {
		doctorID := uuid.New().String()

		query, args, err := db.Insert("doctors").Rows(goqu.Record{
			"id":                 doctorID,
			"name":               d.name,
			"specialty":          d.specialty,
			"hospital":           d.hospital,
			"location":           d.location,
			"languages":          pq.Array(d.languages),
			"accepted_insurance": pq.Array(d.insurance),
			"rating":             d.rating,
			"years_experience":   d.years,
			"bio":                d.bio,
			"available":          true,
			"created_at":         now,
			"updated_at":         now,
		}).ToSQL()
		if err != nil {
			log.Fatalf("Failed to build doctor insert: %v", err)
		}
		if _, err := pgClient.DB().ExecContext(ctx, query, args...); err != nil {
			log.Printf("Failed to insert doctor %s: %v", d.name, err)
			continue
		}

		// A week of 30-minute slots, 09:00-12:00, weekdays only
		slots := 0
		for day := 1; day <= 7; day++ {
			dayStart := now.AddDate(0, 0, day).Truncate(24 * time.Hour).Add(9 * time.Hour)
			if wd := dayStart.Weekday(); wd == time.Saturday || wd == time.Sunday {
				continue
			}
			for i := 0; i < 6; i++ {
				start := dayStart.Add(time.Duration(i) * 30 * time.Minute)
				query, args, err := db.Insert("time_slots").Rows(goqu.Record{
					"id":         uuid.New().String(),
					"doctor_id":  doctorID,
					"start_time": start,
					"end_time":   start.Add(30 * time.Minute),
					"is_booked":  false,
					"created_at": now,
					"updated_at": now,
				}).ToSQL()
				if err != nil {
					log.Fatalf("Failed to build slot insert: %v", err)
				}
				if _, err := pgClient.DB().ExecContext(ctx, query, args...); err != nil {
					log.Printf("Failed to insert slot for %s: %v", d.name, err)
					continue
				}
				slots++
			}
		}
		log.Printf("Seeded %s (%s) with %d open slots", d.name, d.specialty, slots)
	}

	log.Println("Seeding complete")
}
