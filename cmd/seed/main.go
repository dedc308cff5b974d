package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicore/clinic-booking/internal/auth"
	"github.com/clinicore/clinic-booking/internal/db"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("seed starting")

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		log.Fatal("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	gofakeit.Seed(time.Now().UnixNano())

	if err := seedStaff(context.Background(), pool); err != nil {
		log.Fatalf("seed staff: %v", err)
	}
	if err := seedDoctors(context.Background(), pool, 8); err != nil {
		log.Fatalf("seed doctors: %v", err)
	}
	if err := seedPatients(context.Background(), pool, 200); err != nil {
		log.Fatalf("seed patients: %v", err)
	}

	log.Println("seed complete")
}

// seedStaff inserts the fixed demo accounts used to log into the back office.
func seedStaff(ctx context.Context, pool *pgxpool.Pool) error {
	accounts := []struct {
		name     string
		email    string
		password string
		role     string
	}{
		{"Admin Clinique", "admin@clinique.fr", "admin123", "admin"},
		{"Sophie Martin", "secretaire@clinique.fr", "secret123", "secretaire"},
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, a := range accounts {
		hash, err := auth.HashPassword(a.password)
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO users (id, name, email, phone, password_hash, role, is_active, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, true, now())
			ON CONFLICT (email) DO NOTHING
		`, uuid.New(), a.name, a.email, gofakeit.Phone(), hash, a.role)
		if err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	log.Println("staff accounts seeded")
	return nil
}

func seedDoctors(ctx context.Context, pool *pgxpool.Pool, count int) error {
	log.Printf("seeding %d doctors", count)

	specialties := []string{
		"Médecine générale",
		"Cardiologie",
		"Dermatologie",
		"Pédiatrie",
		"Gynécologie",
		"Ophtalmologie",
		"ORL",
		"Rhumatologie",
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for i := 0; i < count; i++ {
		userID := uuid.New()
		doctorID := uuid.New()
		name := "Dr " + gofakeit.Name()
		spec := specialties[i%len(specialties)]

		hash, err := auth.HashPassword("medecin123")
		if err != nil {
			return err
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO users (id, name, email, phone, password_hash, role, is_active, created_at)
			VALUES ($1, $2, $3, $4, $5, 'medecin', true, now())
		`, userID, name, gofakeit.Email(), gofakeit.Phone(), hash)
		if err != nil {
			return err
		}

		minutes := []int{20, 30, 45}[gofakeit.Number(0, 2)]
		_, err = tx.Exec(ctx, `
			INSERT INTO doctors (id, user_id, specialty, description, consultation_minutes, is_available, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, true, now(), now())
		`, doctorID, userID, spec, gofakeit.Sentence(8), minutes)
		if err != nil {
			return err
		}

		// Monday through Friday, morning and afternoon sessions.
		for weekday := 1; weekday <= 5; weekday++ {
			sessions := [][2]string{{"09:00", "12:00"}, {"14:00", "17:00"}}
			for _, s := range sessions {
				_, err = tx.Exec(ctx, `
					INSERT INTO doctor_schedules (id, doctor_id, weekday, start_time, end_time, is_active)
					VALUES ($1, $2, $3, $4, $5, true)
				`, uuid.New(), doctorID, weekday, s[0], s[1])
				if err != nil {
					return err
				}
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	log.Println("doctors seeded")
	return nil
}

func seedPatients(ctx context.Context, pool *pgxpool.Pool, count int) error {
	log.Printf("seeding %d patients", count)

	const batchSize = 100

	for offset := 0; offset < count; offset += batchSize {
		end := offset + batchSize
		if end > count {
			end = count
		}

		tx, err := pool.Begin(ctx)
		if err != nil {
			return err
		}

		for i := offset; i < end; i++ {
			_, err := tx.Exec(ctx, `
				INSERT INTO users (id, name, email, phone, role, is_active, created_at)
				VALUES ($1, $2, $3, $4, 'patient', true, now())
			`, uuid.New(), gofakeit.Name(), gofakeit.Email(), gofakeit.Phone())
			if err != nil {
				_ = tx.Rollback(ctx)
				return err
			}
		}

		if err := tx.Commit(ctx); err != nil {
			return err
		}

		log.Printf("patients seeded: %d/%d", end, count)
	}

	log.Println("patients seeded")
	return nil
}
