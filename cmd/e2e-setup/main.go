package main

import (
	"context"
	"log"
	"time"

	"club-registration/internal/config"
	"club-registration/internal/domain/model"
	pg "club-registration/internal/infra/db/postgres"
	"club-registration/internal/infra/redis"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4/pgxpool"
)

// This script is for setting up a clean, predictable database state
// for manual end-to-end testing.
func main() {
	ctx := context.Background()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("config load: %v", err)
	}

	pool := pg.MustConnectPostgres(cfg.Database.URL)
	defer pool.Close()

	redisClient, err := redis.NewClient(ctx, &cfg.Redis)
	if err != nil {
		log.Fatalf("redis connection failed: %v", err)
	}
	defer redisClient.Close()

	log.Println("--- Starting E2E Environment Setup ---")

	// 1. Clean the Redis cache to remove any stale data.
	log.Println("[1/3] Wiping Redis cache...")
	if err := redisClient.FlushDB(ctx); err != nil {
		log.Fatalf("failed to flush redis: %v", err)
	}

	// 2. Clean the database completely.
	log.Println("[2/3] Wiping all existing database data...")
	_, err = pool.Exec(ctx, `
		TRUNCATE
			users, memberships, user_memberships, registrations,
			registration_categories, user_registrations, waitlist_entries,
			payments, refunds, staged_transactions
		RESTART IDENTITY CASCADE;
	`)
	if err != nil {
		log.Fatalf("failed to truncate tables: %v", err)
	}

	// 3. Seed the baseline data the registration flow needs.
	log.Println("[3/3] Seeding membership types and a test registration...")
	seedBaseline(ctx, pool)

	log.Println("--- E2E Environment Setup Complete ---")
}

// seedBaseline writes the minimum data needed to walk a user through the
// register-and-pay flow by hand.
func seedBaseline(ctx context.Context, pool *pgxpool.Pool) {
	memberships := pg.NewMembershipRepo(pool)
	registrations := pg.NewRegistrationRepo(pool)
	categories := pg.NewCategoryRepo(pool)
	users := pg.NewUserRepo(pool)

	full, _ := model.NewMembership(uuid.NewString(), "Full Membership", "4100-MEM", 1_500, 12_000)
	full.DiscountEligible = true
	full.MonthlyAvailable = true
	if err := memberships.Save(ctx, nil, full); err != nil {
		log.Printf("failed to save full membership: %v", err)
	}

	reg, _ := model.NewRegistration(uuid.NewString(), "E2E Test League", "e2e-season", model.RegistrationTypeTeam)
	reg.AccountingCode = "4200-REG"
	reg.RequiredMembershipID = &full.ID
	opens := time.Now().Add(-time.Hour)
	reg.OpensAt = &opens
	if err := registrations.Save(ctx, nil, reg); err != nil {
		log.Printf("failed to save registration: %v", err)
	}

	player, _ := model.NewRegistrationCategory(uuid.NewString(), reg.ID, "Player", 25_000)
	capacity := 2
	player.MaxCapacity = &capacity
	if err := categories.Save(ctx, nil, player); err != nil {
		log.Printf("failed to save player category: %v", err)
	}

	u, _ := model.NewUser("", "e2e@example.com", "E2E Tester")
	if err := users.Save(ctx, nil, u); err != nil {
		log.Printf("failed to save test user: %v", err)
	}

	log.Printf("seeded registration %s with category %s and user %s", reg.ID, player.ID, u.ID)
}
