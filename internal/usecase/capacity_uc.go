package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"club-registration/internal/domain"
	"club-registration/internal/domain/model"
	"club-registration/internal/domain/ports/repository"
	"club-registration/internal/infra/metrics"
)

// Compile-time check
var _ CapacityUseCase = (*capacityUC)(nil)

// CategoryOccupancy is one row of the admin occupancy report.
type CategoryOccupancy struct {
	Category  *model.RegistrationCategory
	Occupancy int
	Open      bool
	Waitlist  int
}

type CapacityUseCase interface {
	// GetCategoryOccupancy counts claimed slots (paid, processing,
	// awaiting_payment) per category.
	GetCategoryOccupancy(ctx context.Context, categoryIDs []string) (map[string]int, error)

	// OccupancyReport is the read-only admin projection for one
	// registration's categories.
	OccupancyReport(ctx context.Context, registrationID string) ([]CategoryOccupancy, error)

	// ClaimSlot atomically re-checks capacity and inserts an
	// awaiting_payment row in one transaction. Returns ErrCategoryFull
	// when the category has no room and ErrDuplicateRegistration when the
	// data layer's uniqueness constraint reports a lost race.
	ClaimSlot(ctx context.Context, userID, registrationID, categoryID string, fee int64) (*model.UserRegistration, error)

	// ReleaseSlot marks a claimed-but-unpaid row failed, freeing the slot.
	ReleaseSlot(ctx context.Context, userRegistrationID string) error

	// JoinWaitlist appends the user at max position + 1 among non-removed
	// entries, transactionally.
	JoinWaitlist(ctx context.Context, userID, registrationID, categoryID string) (*model.WaitlistEntry, error)

	// LeaveWaitlist soft-deletes the entry; remaining positions keep their
	// values (gaps are fine, position is an ordering key).
	LeaveWaitlist(ctx context.Context, entryID string) error
}

type capacityUC struct {
	categories repository.CategoryRepository
	userRegs   repository.UserRegistrationRepository
	waitlist   repository.WaitlistRepository
	tm         repository.TransactionManager
	now        func() time.Time
	log        *zerolog.Logger
}

func NewCapacityUseCase(
	categories repository.CategoryRepository,
	userRegs repository.UserRegistrationRepository,
	waitlist repository.WaitlistRepository,
	tm repository.TransactionManager,
	logger *zerolog.Logger,
) *capacityUC {
	compLog := logger.With().Str("component", "CapacityUC").Logger()
	return &capacityUC{
		categories: categories,
		userRegs:   userRegs,
		waitlist:   waitlist,
		tm:         tm,
		now:        time.Now,
		log:        &compLog,
	}
}

func (uc *capacityUC) GetCategoryOccupancy(ctx context.Context, categoryIDs []string) (map[string]int, error) {
	if len(categoryIDs) == 0 {
		return map[string]int{}, nil
	}
	return uc.userRegs.CountOccupying(ctx, repository.NoTX, categoryIDs)
}

func (uc *capacityUC) OccupancyReport(ctx context.Context, registrationID string) ([]CategoryOccupancy, error) {
	cats, err := uc.categories.ListByRegistration(ctx, repository.NoTX, registrationID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(cats))
	for i, c := range cats {
		ids[i] = c.ID
	}
	counts, err := uc.userRegs.CountOccupying(ctx, repository.NoTX, ids)
	if err != nil {
		return nil, err
	}

	report := make([]CategoryOccupancy, 0, len(cats))
	for _, c := range cats {
		wl, err := uc.waitlist.ListActive(ctx, repository.NoTX, registrationID, c.ID)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		occ := counts[c.ID]
		metrics.SetCategoryOccupancy(c.ID, occ)
		report = append(report, CategoryOccupancy{
			Category:  c,
			Occupancy: occ,
			Open:      c.IsOpenFor(occ),
			Waitlist:  len(wl),
		})
	}
	return report, nil
}

func (uc *capacityUC) ClaimSlot(ctx context.Context, userID, registrationID, categoryID string, fee int64) (*model.UserRegistration, error) {
	if userID == "" || registrationID == "" || categoryID == "" {
		return nil, domain.ErrInvalidArgument
	}

	var claimed *model.UserRegistration
	// The count and the insert share one transaction: the occupancy check
	// must never be pre-computed and carried across a request boundary.
	err := uc.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		// Serialize claims per category, or two concurrent claims both see
		// the same count and a 1-slot category ends up with 2 rows.
		if err := uc.categories.Lock(ctx, tx, categoryID); err != nil {
			return err
		}
		cat, err := uc.categories.FindByID(ctx, tx, categoryID)
		if err != nil {
			return err
		}
		if cat.RegistrationID != registrationID {
			return domain.ErrInvalidArgument
		}

		counts, err := uc.userRegs.CountOccupying(ctx, tx, []string{categoryID})
		if err != nil {
			return err
		}
		if !cat.IsOpenFor(counts[categoryID]) {
			return domain.ErrCategoryFull
		}

		ur, err := model.NewUserRegistration(uuid.NewString(), userID, registrationID, categoryID, fee)
		if err != nil {
			return err
		}
		if err := uc.userRegs.Save(ctx, tx, ur); err != nil {
			// A unique-constraint conflict means a concurrent request won
			// the duplicate race at commit time; surface the same reason
			// the pre-flight check would have.
			if errors.Is(err, domain.ErrAlreadyExists) {
				return domain.ErrDuplicateRegistration
			}
			return err
		}
		claimed = ur
		return nil
	})
	if err != nil {
		return nil, err
	}
	uc.log.Debug().Str("user_id", userID).Str("category_id", categoryID).Msg("slot claimed")
	return claimed, nil
}

func (uc *capacityUC) ReleaseSlot(ctx context.Context, userRegistrationID string) error {
	return uc.userRegs.UpdatePaymentStatus(ctx, repository.NoTX, userRegistrationID, model.RegistrationFailed)
}

func (uc *capacityUC) JoinWaitlist(ctx context.Context, userID, registrationID, categoryID string) (*model.WaitlistEntry, error) {
	var entry *model.WaitlistEntry
	err := uc.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		max, err := uc.waitlist.MaxPosition(ctx, tx, registrationID, categoryID)
		if err != nil {
			return err
		}
		e, err := model.NewWaitlistEntry(uuid.NewString(), userID, registrationID, categoryID, max+1)
		if err != nil {
			return err
		}
		if err := uc.waitlist.Save(ctx, tx, e); err != nil {
			return err
		}
		entry = e
		return nil
	})
	if err != nil {
		return nil, err
	}
	metrics.IncWaitlistJoin()
	uc.log.Info().Str("user_id", userID).Str("category_id", categoryID).Int("position", entry.Position).Msg("joined waitlist")
	return entry, nil
}

func (uc *capacityUC) LeaveWaitlist(ctx context.Context, entryID string) error {
	return uc.waitlist.Remove(ctx, repository.NoTX, entryID, uc.now())
}
