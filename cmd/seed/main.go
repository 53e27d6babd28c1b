package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"club-registration/internal/config"
	"club-registration/internal/domain/model"
	"club-registration/internal/domain/ports/repository"
	pg "club-registration/internal/infra/db/postgres"
)

// Seeds a sample season so the registration flow can be exercised end to
// end: two membership types, one team registration with capped categories
// and a few users. Safe to run repeatedly; it bails out when memberships
// already exist.
func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool := pg.MustConnectPostgres(cfg.Database.URL)
	defer pool.Close()

	memberships := pg.NewMembershipRepo(pool)
	registrations := pg.NewRegistrationRepo(pool)
	categories := pg.NewCategoryRepo(pool)
	users := pg.NewUserRepo(pool)

	existing, err := memberships.ListAll(ctx, repository.NoTX)
	if err != nil {
		log.Fatalf("list memberships: %v", err)
	}
	if len(existing) > 0 {
		fmt.Printf("%d membership types already present. No changes.\n", len(existing))
		for _, m := range existing {
			fmt.Printf("  - %s (annual=%d, monthly=%d)\n", m.Name, m.AnnualPrice, m.MonthlyPrice)
		}
		return
	}

	fullID, socialID := uuid.NewString(), uuid.NewString()
	for _, s := range []struct {
		ID, Name, Code      string
		Monthly, Annual     int64
		Discount, MonthlyOK bool
	}{
		{fullID, "Full Membership", "4100-MEM", 1_500, 12_000, true, true},
		{socialID, "Social Membership", "4110-MEM", 0, 4_000, false, false},
	} {
		m, err := model.NewMembership(s.ID, s.Name, s.Code, s.Monthly, s.Annual)
		if err != nil {
			log.Fatalf("build membership %q: %v", s.Name, err)
		}
		m.DiscountEligible = s.Discount
		m.MonthlyAvailable = s.MonthlyOK
		if err := memberships.Save(ctx, repository.NoTX, m); err != nil {
			log.Fatalf("save membership %q: %v", s.Name, err)
		}
		fmt.Printf("seeded membership: %s (id=%s)\n", m.Name, m.ID)
	}

	reg, err := model.NewRegistration(uuid.NewString(), "Winter League 2026", "2026-winter", model.RegistrationTypeTeam)
	if err != nil {
		log.Fatalf("build registration: %v", err)
	}
	reg.AccountingCode = "4200-REG"
	reg.RequiredMembershipID = &fullID
	opens := time.Now().Add(-24 * time.Hour)
	closes := time.Now().Add(60 * 24 * time.Hour)
	reg.OpensAt = &opens
	reg.ClosesAt = &closes
	if err := registrations.Save(ctx, repository.NoTX, reg); err != nil {
		log.Fatalf("save registration: %v", err)
	}
	fmt.Printf("seeded registration: %s (id=%s)\n", reg.Name, reg.ID)

	for i, s := range []struct {
		Name  string
		Price int64
		Cap   *int
	}{
		{"Player", 25_000, intPtr(40)},
		{"Goalie", 5_000, intPtr(4)},
		{"Practice Player", 10_000, nil},
	} {
		c, err := model.NewRegistrationCategory(uuid.NewString(), reg.ID, s.Name, s.Price)
		if err != nil {
			log.Fatalf("build category %q: %v", s.Name, err)
		}
		c.MaxCapacity = s.Cap
		c.SortOrder = i
		if err := categories.Save(ctx, repository.NoTX, c); err != nil {
			log.Fatalf("save category %q: %v", s.Name, err)
		}
		fmt.Printf("seeded category: %s (id=%s, price=%d)\n", c.Name, c.ID, c.Price)
	}

	for _, s := range []struct{ Email, Name string }{
		{"alice@example.com", "Alice Ortiz"},
		{"bram@example.com", "Bram Veldman"},
	} {
		u, err := model.NewUser("", s.Email, s.Name)
		if err != nil {
			log.Fatalf("build user %q: %v", s.Email, err)
		}
		if err := users.Save(ctx, repository.NoTX, u); err != nil {
			log.Fatalf("save user %q: %v", s.Email, err)
		}
		fmt.Printf("seeded user: %s (id=%s)\n", u.Email, u.ID)
	}

	fmt.Println("Seeding complete.")
}

func intPtr(v int) *int { return &v }
