//go:build !integration

package usecase_test

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"club-registration/internal/domain"
	"club-registration/internal/domain/model"
	"club-registration/internal/domain/ports/adapter"
	"club-registration/internal/domain/ports/repository"
	"club-registration/internal/usecase"
)

// =============================
// Repositories
// =============================

// ---- Mock UserRepository ----

type MockUserRepo struct {
	mu   sync.Mutex
	data map[string]*model.User

	SaveFunc     func(ctx context.Context, tx repository.Tx, u *model.User) error
	FindByIDFunc func(ctx context.Context, tx repository.Tx, id string) (*model.User, error)
}

var _ repository.UserRepository = (*MockUserRepo)(nil)

func NewMockUserRepo() *MockUserRepo {
	return &MockUserRepo{data: map[string]*model.User{}}
}

func (r *MockUserRepo) Save(ctx context.Context, tx repository.Tx, u *model.User) error {
	if r.SaveFunc != nil {
		return r.SaveFunc(ctx, tx, u)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	cp := *u
	r.data[u.ID] = &cp
	return nil
}

func (r *MockUserRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.User, error) {
	if r.FindByIDFunc != nil {
		return r.FindByIDFunc(ctx, tx, id)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.data[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (r *MockUserRepo) FindByEmail(ctx context.Context, tx repository.Tx, email string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.data {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *MockUserRepo) SetPaymentMethod(ctx context.Context, tx repository.Tx, userID string, paymentMethodID *string, status model.SetupIntentStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.data[userID]
	if !ok {
		return domain.ErrNotFound
	}
	u.StripePaymentMethodID = paymentMethodID
	u.SetupIntentStatus = status
	return nil
}

func (r *MockUserRepo) List(ctx context.Context, tx repository.Tx, offset, limit int) ([]*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*model.User, 0, len(r.data))
	for _, u := range r.data {
		cp := *u
		out = append(out, &cp)
	}
	return out, nil
}

// ---- Mock MembershipRepository ----

type MockMembershipRepo struct {
	mu   sync.Mutex
	data map[string]*model.Membership

	FindByIDFunc func(ctx context.Context, tx repository.Tx, id string) (*model.Membership, error)
}

var _ repository.MembershipRepository = (*MockMembershipRepo)(nil)

func NewMockMembershipRepo() *MockMembershipRepo {
	return &MockMembershipRepo{data: map[string]*model.Membership{}}
}

func (r *MockMembershipRepo) Save(ctx context.Context, tx repository.Tx, m *model.Membership) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *m
	r.data[m.ID] = &cp
	return nil
}

func (r *MockMembershipRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Membership, error) {
	if r.FindByIDFunc != nil {
		return r.FindByIDFunc(ctx, tx, id)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if m, ok := r.data[id]; ok {
		cp := *m
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (r *MockMembershipRepo) FindByIDs(ctx context.Context, tx repository.Tx, ids []string) ([]*model.Membership, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*model.Membership, 0, len(ids))
	for _, id := range ids {
		if m, ok := r.data[id]; ok {
			cp := *m
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *MockMembershipRepo) ListAll(ctx context.Context, tx repository.Tx) ([]*model.Membership, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*model.Membership, 0, len(r.data))
	for _, m := range r.data {
		cp := *m
		out = append(out, &cp)
	}
	return out, nil
}

func (r *MockMembershipRepo) Delete(ctx context.Context, tx repository.Tx, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.data[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.data, id)
	return nil
}

// ---- Mock UserMembershipRepository ----

type MockUserMembershipRepo struct {
	mu   sync.Mutex
	data map[string]*model.UserMembership

	SaveFunc       func(ctx context.Context, tx repository.Tx, um *model.UserMembership) error
	ListByUserFunc func(ctx context.Context, tx repository.Tx, userID string) ([]*model.UserMembership, error)
}

var _ repository.UserMembershipRepository = (*MockUserMembershipRepo)(nil)

func NewMockUserMembershipRepo() *MockUserMembershipRepo {
	return &MockUserMembershipRepo{data: map[string]*model.UserMembership{}}
}

func (r *MockUserMembershipRepo) Save(ctx context.Context, tx repository.Tx, um *model.UserMembership) error {
	if r.SaveFunc != nil {
		return r.SaveFunc(ctx, tx, um)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *um
	r.data[um.ID] = &cp
	return nil
}

func (r *MockUserMembershipRepo) ListByUser(ctx context.Context, tx repository.Tx, userID string) ([]*model.UserMembership, error) {
	if r.ListByUserFunc != nil {
		return r.ListByUserFunc(ctx, tx, userID)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.UserMembership
	for _, um := range r.data {
		if um.UserID == userID {
			cp := *um
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *MockUserMembershipRepo) UpdatePaymentStatus(ctx context.Context, tx repository.Tx, id string, status model.MembershipPaymentStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	um, ok := r.data[id]
	if !ok {
		return domain.ErrNotFound
	}
	um.PaymentStatus = status
	return nil
}

func (r *MockUserMembershipRepo) ListExpiringWithin(ctx context.Context, tx repository.Tx, days int) ([]*model.UserMembership, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cutoff := time.Now().AddDate(0, 0, days)
	var out []*model.UserMembership
	for _, um := range r.data {
		if um.PaymentStatus == model.MembershipPaymentPaid && !um.ValidUntil.After(cutoff) && um.ValidUntil.After(time.Now()) {
			cp := *um
			out = append(out, &cp)
		}
	}
	return out, nil
}

// ---- Mock RegistrationRepository ----

type MockRegistrationRepo struct {
	mu   sync.Mutex
	data map[string]*model.Registration

	FindByIDFunc func(ctx context.Context, tx repository.Tx, id string) (*model.Registration, error)
}

var _ repository.RegistrationRepository = (*MockRegistrationRepo)(nil)

func NewMockRegistrationRepo() *MockRegistrationRepo {
	return &MockRegistrationRepo{data: map[string]*model.Registration{}}
}

func (r *MockRegistrationRepo) Save(ctx context.Context, tx repository.Tx, reg *model.Registration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *reg
	r.data[reg.ID] = &cp
	return nil
}

func (r *MockRegistrationRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Registration, error) {
	if r.FindByIDFunc != nil {
		return r.FindByIDFunc(ctx, tx, id)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if reg, ok := r.data[id]; ok {
		cp := *reg
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (r *MockRegistrationRepo) ListBySeason(ctx context.Context, tx repository.Tx, seasonID string) ([]*model.Registration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Registration
	for _, reg := range r.data {
		if reg.SeasonID == seasonID {
			cp := *reg
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *MockRegistrationRepo) Delete(ctx context.Context, tx repository.Tx, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.data, id)
	return nil
}

// ---- Mock CategoryRepository ----

type MockCategoryRepo struct {
	mu    sync.Mutex
	data  map[string]*model.RegistrationCategory
	locks map[string]*sync.Mutex

	FindByIDFunc func(ctx context.Context, tx repository.Tx, id string) (*model.RegistrationCategory, error)
}

var _ repository.CategoryRepository = (*MockCategoryRepo)(nil)

func NewMockCategoryRepo() *MockCategoryRepo {
	return &MockCategoryRepo{
		data:  map[string]*model.RegistrationCategory{},
		locks: map[string]*sync.Mutex{},
	}
}

// Lock mimics the transaction-scoped advisory lock: held until the mock
// transaction ends, so concurrent claims on one category serialize the
// same way they do against the real database.
func (r *MockCategoryRepo) Lock(ctx context.Context, tx repository.Tx, id string) error {
	r.mu.Lock()
	l, ok := r.locks[id]
	if !ok {
		l = &sync.Mutex{}
		r.locks[id] = l
	}
	r.mu.Unlock()

	l.Lock()
	if mt, ok := tx.(*mockTx); ok {
		mt.deferred(l.Unlock)
		return nil
	}
	l.Unlock()
	return nil
}

func (r *MockCategoryRepo) Save(ctx context.Context, tx repository.Tx, c *model.RegistrationCategory) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *c
	r.data[c.ID] = &cp
	return nil
}

func (r *MockCategoryRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.RegistrationCategory, error) {
	if r.FindByIDFunc != nil {
		return r.FindByIDFunc(ctx, tx, id)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.data[id]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (r *MockCategoryRepo) ListByRegistration(ctx context.Context, tx repository.Tx, registrationID string) ([]*model.RegistrationCategory, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.RegistrationCategory
	for _, c := range r.data {
		if c.RegistrationID == registrationID {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *MockCategoryRepo) Delete(ctx context.Context, tx repository.Tx, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.data, id)
	return nil
}

// ---- Mock UserRegistrationRepository ----

// MockUserRegistrationRepo mimics the partial unique index on
// (user_id, registration_id) over occupying statuses: Save fails with
// ErrAlreadyExists when another occupying row exists for the same pair.
type MockUserRegistrationRepo struct {
	mu   sync.Mutex
	data map[string]*model.UserRegistration

	SaveFunc                          func(ctx context.Context, tx repository.Tx, ur *model.UserRegistration) error
	FindPaidByUserAndRegistrationFunc func(ctx context.Context, tx repository.Tx, userID, registrationID string) (*model.UserRegistration, error)
	CountOccupyingFunc                func(ctx context.Context, tx repository.Tx, categoryIDs []string) (map[string]int, error)
	UpdateStatusWhereFunc             func(ctx context.Context, tx repository.Tx, paymentID string, from, to model.RegistrationPaymentStatus) ([]string, error)
}

var _ repository.UserRegistrationRepository = (*MockUserRegistrationRepo)(nil)

func NewMockUserRegistrationRepo() *MockUserRegistrationRepo {
	return &MockUserRegistrationRepo{data: map[string]*model.UserRegistration{}}
}

func (r *MockUserRegistrationRepo) Save(ctx context.Context, tx repository.Tx, ur *model.UserRegistration) error {
	if r.SaveFunc != nil {
		return r.SaveFunc(ctx, tx, ur)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.data {
		if existing.ID != ur.ID && existing.UserID == ur.UserID && existing.RegistrationID == ur.RegistrationID && existing.Occupies() && ur.Occupies() {
			return domain.ErrAlreadyExists
		}
	}
	cp := *ur
	r.data[ur.ID] = &cp
	return nil
}

func (r *MockUserRegistrationRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.UserRegistration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ur, ok := r.data[id]; ok {
		cp := *ur
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (r *MockUserRegistrationRepo) FindPaidByUserAndRegistration(ctx context.Context, tx repository.Tx, userID, registrationID string) (*model.UserRegistration, error) {
	if r.FindPaidByUserAndRegistrationFunc != nil {
		return r.FindPaidByUserAndRegistrationFunc(ctx, tx, userID, registrationID)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ur := range r.data {
		if ur.UserID == userID && ur.RegistrationID == registrationID && ur.PaymentStatus == model.RegistrationPaid {
			cp := *ur
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *MockUserRegistrationRepo) ListByRegistration(ctx context.Context, tx repository.Tx, registrationID string) ([]*model.UserRegistration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.UserRegistration
	for _, ur := range r.data {
		if ur.RegistrationID == registrationID {
			cp := *ur
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *MockUserRegistrationRepo) ListByPayment(ctx context.Context, tx repository.Tx, paymentID string) ([]*model.UserRegistration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.UserRegistration
	for _, ur := range r.data {
		if ur.PaymentID != nil && *ur.PaymentID == paymentID {
			cp := *ur
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *MockUserRegistrationRepo) CountOccupying(ctx context.Context, tx repository.Tx, categoryIDs []string) (map[string]int, error) {
	if r.CountOccupyingFunc != nil {
		return r.CountOccupyingFunc(ctx, tx, categoryIDs)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := map[string]int{}
	for _, ur := range r.data {
		if !ur.Occupies() {
			continue
		}
		for _, id := range categoryIDs {
			if ur.CategoryID == id {
				counts[id]++
			}
		}
	}
	return counts, nil
}

func (r *MockUserRegistrationRepo) UpdatePaymentStatus(ctx context.Context, tx repository.Tx, id string, status model.RegistrationPaymentStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ur, ok := r.data[id]
	if !ok {
		return domain.ErrNotFound
	}
	ur.PaymentStatus = status
	return nil
}

func (r *MockUserRegistrationRepo) AttachPayment(ctx context.Context, tx repository.Tx, ids []string, paymentID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range ids {
		ur, ok := r.data[id]
		if !ok {
			return domain.ErrNotFound
		}
		pid := paymentID
		ur.PaymentID = &pid
		ur.PaymentStatus = model.RegistrationProcessing
	}
	return nil
}

func (r *MockUserRegistrationRepo) UpdateStatusWhere(ctx context.Context, tx repository.Tx, paymentID string, from, to model.RegistrationPaymentStatus) ([]string, error) {
	if r.UpdateStatusWhereFunc != nil {
		return r.UpdateStatusWhereFunc(ctx, tx, paymentID, from, to)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var touched []string
	for _, ur := range r.data {
		if ur.PaymentID != nil && *ur.PaymentID == paymentID && ur.PaymentStatus == from {
			ur.PaymentStatus = to
			touched = append(touched, ur.ID)
		}
	}
	return touched, nil
}

func (r *MockUserRegistrationRepo) ListAbandonedAwaiting(ctx context.Context, tx repository.Tx, cutoff time.Time, limit int) ([]*model.UserRegistration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.UserRegistration
	for _, ur := range r.data {
		if ur.PaymentStatus == model.RegistrationAwaitingPayment && ur.CreatedAt.Before(cutoff) {
			cp := *ur
			out = append(out, &cp)
		}
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// Get is a test helper for asserting on stored state.
func (r *MockUserRegistrationRepo) Get(id string) *model.UserRegistration {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ur, ok := r.data[id]; ok {
		cp := *ur
		return &cp
	}
	return nil
}

// ---- Mock WaitlistRepository ----

type MockWaitlistRepo struct {
	mu   sync.Mutex
	data map[string]*model.WaitlistEntry
}

var _ repository.WaitlistRepository = (*MockWaitlistRepo)(nil)

func NewMockWaitlistRepo() *MockWaitlistRepo {
	return &MockWaitlistRepo{data: map[string]*model.WaitlistEntry{}}
}

func (r *MockWaitlistRepo) Save(ctx context.Context, tx repository.Tx, w *model.WaitlistEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *w
	r.data[w.ID] = &cp
	return nil
}

func (r *MockWaitlistRepo) ListActive(ctx context.Context, tx repository.Tx, registrationID, categoryID string) ([]*model.WaitlistEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.WaitlistEntry
	for _, w := range r.data {
		if w.RegistrationID == registrationID && w.CategoryID == categoryID && w.RemovedAt == nil {
			cp := *w
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *MockWaitlistRepo) MaxPosition(ctx context.Context, tx repository.Tx, registrationID, categoryID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	max := 0
	for _, w := range r.data {
		if w.RegistrationID == registrationID && w.CategoryID == categoryID && w.RemovedAt == nil && w.Position > max {
			max = w.Position
		}
	}
	return max, nil
}

func (r *MockWaitlistRepo) Remove(ctx context.Context, tx repository.Tx, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.data[id]
	if !ok || w.RemovedAt != nil {
		return domain.ErrNotFound
	}
	w.RemovedAt = &at
	return nil
}

// Get is a test helper for asserting on stored state.
func (r *MockWaitlistRepo) Get(id string) *model.WaitlistEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	if w, ok := r.data[id]; ok {
		cp := *w
		return &cp
	}
	return nil
}

// ---- Mock PaymentRepository ----

type MockPaymentRepo struct {
	mu   sync.Mutex
	data map[string]*model.Payment

	SaveFunc         func(ctx context.Context, tx repository.Tx, p *model.Payment) error
	FindByIDFunc     func(ctx context.Context, tx repository.Tx, id string) (*model.Payment, error)
	UpdateStatusFunc func(ctx context.Context, tx repository.Tx, id string, status model.PaymentStatus, intentID *string, completedAt *time.Time) error
}

var _ repository.PaymentRepository = (*MockPaymentRepo)(nil)

func NewMockPaymentRepo() *MockPaymentRepo {
	return &MockPaymentRepo{data: map[string]*model.Payment{}}
}

func (r *MockPaymentRepo) Save(ctx context.Context, tx repository.Tx, p *model.Payment) error {
	if r.SaveFunc != nil {
		return r.SaveFunc(ctx, tx, p)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *p
	r.data[p.ID] = &cp
	return nil
}

func (r *MockPaymentRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Payment, error) {
	if r.FindByIDFunc != nil {
		return r.FindByIDFunc(ctx, tx, id)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.data[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (r *MockPaymentRepo) FindByPaymentIntent(ctx context.Context, tx repository.Tx, intentID string) (*model.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.data {
		if p.PaymentIntentID != nil && *p.PaymentIntentID == intentID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *MockPaymentRepo) UpdateStatus(ctx context.Context, tx repository.Tx, id string, status model.PaymentStatus, intentID *string, completedAt *time.Time) error {
	if r.UpdateStatusFunc != nil {
		return r.UpdateStatusFunc(ctx, tx, id, status, intentID, completedAt)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.data[id]
	if !ok {
		return domain.ErrNotFound
	}
	p.Status = status
	if intentID != nil {
		p.PaymentIntentID = intentID
	}
	if completedAt != nil {
		p.CompletedAt = completedAt
	}
	return nil
}

func (r *MockPaymentRepo) SumCompletedByPeriod(ctx context.Context, tx repository.Tx, period string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var sum int64
	for _, p := range r.data {
		if p.Status == model.PaymentStatusCompleted {
			sum += p.FinalAmount
		}
	}
	return sum, nil
}

// Get is a test helper for asserting on stored state.
func (r *MockPaymentRepo) Get(id string) *model.Payment {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.data[id]; ok {
		cp := *p
		return &cp
	}
	return nil
}

// ---- Mock RefundRepository ----

type MockRefundRepo struct {
	mu   sync.Mutex
	data map[string]*model.Refund

	SaveFunc func(ctx context.Context, tx repository.Tx, ref *model.Refund) error
}

var _ repository.RefundRepository = (*MockRefundRepo)(nil)

func NewMockRefundRepo() *MockRefundRepo {
	return &MockRefundRepo{data: map[string]*model.Refund{}}
}

func (r *MockRefundRepo) Save(ctx context.Context, tx repository.Tx, ref *model.Refund) error {
	if r.SaveFunc != nil {
		return r.SaveFunc(ctx, tx, ref)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *ref
	r.data[ref.ID] = &cp
	return nil
}

func (r *MockRefundRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Refund, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ref, ok := r.data[id]; ok {
		cp := *ref
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (r *MockRefundRepo) ListByPayment(ctx context.Context, tx repository.Tx, paymentID string) ([]*model.Refund, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Refund
	for _, ref := range r.data {
		if ref.PaymentID == paymentID {
			cp := *ref
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *MockRefundRepo) UpdateStatus(ctx context.Context, tx repository.Tx, id string, status model.RefundStatus, stripeRefundID *string, completedAt *time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ref, ok := r.data[id]
	if !ok {
		return domain.ErrNotFound
	}
	ref.Status = status
	if stripeRefundID != nil {
		ref.StripeRefundID = stripeRefundID
	}
	if completedAt != nil {
		ref.CompletedAt = completedAt
	}
	return nil
}

// Get is a test helper for asserting on stored state.
func (r *MockRefundRepo) Get(id string) *model.Refund {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ref, ok := r.data[id]; ok {
		cp := *ref
		return &cp
	}
	return nil
}

// ---- Mock StagedTransactionRepository ----

type MockStagedRepo struct {
	mu   sync.Mutex
	data map[string]*model.StagedTransaction

	SaveFunc               func(ctx context.Context, tx repository.Tx, st *model.StagedTransaction) error
	UpdateSyncStatusIfFunc func(ctx context.Context, tx repository.Tx, id string, expected, next model.SyncStatus, failureReason *string) (bool, error)
}

var _ repository.StagedTransactionRepository = (*MockStagedRepo)(nil)

func NewMockStagedRepo() *MockStagedRepo {
	return &MockStagedRepo{data: map[string]*model.StagedTransaction{}}
}

func (r *MockStagedRepo) Save(ctx context.Context, tx repository.Tx, st *model.StagedTransaction) error {
	if r.SaveFunc != nil {
		return r.SaveFunc(ctx, tx, st)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.data[st.ID]; ok {
		return domain.ErrAlreadyExists
	}
	cp := *st
	r.data[st.ID] = &cp
	return nil
}

func (r *MockStagedRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.StagedTransaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if st, ok := r.data[id]; ok {
		cp := *st
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (r *MockStagedRepo) Link(ctx context.Context, tx repository.Tx, id string, paymentID, refundID *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.data[id]
	if !ok {
		return domain.ErrNotFound
	}
	if paymentID != nil {
		st.PaymentID = paymentID
	}
	if refundID != nil {
		st.RefundID = refundID
	}
	return nil
}

func (r *MockStagedRepo) MarkSubmitted(ctx context.Context, tx repository.Tx, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.data[id]
	if !ok {
		return domain.ErrNotFound
	}
	st.SubmittedAt = &at
	st.UpdatedAt = time.Now()
	return nil
}

func (r *MockStagedRepo) UpdateSyncStatusIf(ctx context.Context, tx repository.Tx, id string, expected, next model.SyncStatus, failureReason *string) (bool, error) {
	if r.UpdateSyncStatusIfFunc != nil {
		return r.UpdateSyncStatusIfFunc(ctx, tx, id, expected, next, failureReason)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.data[id]
	if !ok {
		return false, domain.ErrNotFound
	}
	if st.SyncStatus != expected {
		return false, nil
	}
	st.SyncStatus = next
	if failureReason != nil {
		st.FailureReason = failureReason
	}
	st.UpdatedAt = time.Now()
	return true, nil
}

func (r *MockStagedRepo) ListPendingOlderThan(ctx context.Context, tx repository.Tx, olderThan time.Time, limit int) ([]*model.StagedTransaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.StagedTransaction
	for _, st := range r.data {
		if st.SyncStatus == model.SyncPending && st.UpdatedAt.Before(olderThan) {
			cp := *st
			out = append(out, &cp)
		}
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// FindByPayment is a test helper locating the record linked to a payment.
func (r *MockStagedRepo) FindByPayment(paymentID string) *model.StagedTransaction {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, st := range r.data {
		if st.PaymentID != nil && *st.PaymentID == paymentID {
			cp := *st
			return &cp
		}
	}
	return nil
}

// Get is a test helper for asserting on stored state.
func (r *MockStagedRepo) Get(id string) *model.StagedTransaction {
	r.mu.Lock()
	defer r.mu.Unlock()
	if st, ok := r.data[id]; ok {
		cp := *st
		return &cp
	}
	return nil
}

// =============================
// Adapters
// =============================

// ---- Mock PaymentGateway ----

type MockPaymentGateway struct {
	mu      sync.Mutex
	charges int
	refunds int

	Charges []int64 // amounts submitted
	Refunds []int64

	CreateChargeFunc func(ctx context.Context, amount int64, paymentMethodID string, metadata map[string]string) (adapter.ChargeResult, error)
	CreateRefundFunc func(ctx context.Context, paymentIntentID string, amount int64, metadata map[string]string) (adapter.RefundResult, error)
}

var _ adapter.PaymentGateway = (*MockPaymentGateway)(nil)

func (g *MockPaymentGateway) Name() string { return "mock" }

func (g *MockPaymentGateway) CreateCharge(ctx context.Context, amount int64, paymentMethodID string, metadata map[string]string) (adapter.ChargeResult, error) {
	if g.CreateChargeFunc != nil {
		return g.CreateChargeFunc(ctx, amount, paymentMethodID, metadata)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.charges++
	g.Charges = append(g.Charges, amount)
	return adapter.ChargeResult{
		PaymentIntentID: fmt.Sprintf("pi_test_%d", g.charges),
		Status:          "succeeded",
		CreatedAt:       time.Now(),
	}, nil
}

func (g *MockPaymentGateway) CreateRefund(ctx context.Context, paymentIntentID string, amount int64, metadata map[string]string) (adapter.RefundResult, error) {
	if g.CreateRefundFunc != nil {
		return g.CreateRefundFunc(ctx, paymentIntentID, amount, metadata)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.refunds++
	g.Refunds = append(g.Refunds, amount)
	return adapter.RefundResult{
		RefundID:  fmt.Sprintf("re_test_%d", g.refunds),
		Status:    "succeeded",
		Amount:    amount,
		CreatedAt: time.Now(),
	}, nil
}

// ChargeCount reports how many charges reached the gateway.
func (g *MockPaymentGateway) ChargeCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.charges
}

// ---- Mock TransactionManager ----

// mockTx stands in for a live transaction. Mocks register cleanup on it
// to model transaction-scoped resources such as advisory locks, which
// release when the transaction ends regardless of commit or rollback.
type mockTx struct {
	mu     sync.Mutex
	onDone []func()
}

func (t *mockTx) deferred(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onDone = append(t.onDone, fn)
}

func (t *mockTx) done() {
	t.mu.Lock()
	fns := t.onDone
	t.onDone = nil
	t.mu.Unlock()
	for i := len(fns) - 1; i >= 0; i-- {
		fns[i]()
	}
}

type MockTxManager struct {
	WithTxFunc func(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error
}

var _ repository.TransactionManager = (*MockTxManager)(nil)

func NewMockTxManager() *MockTxManager { return &MockTxManager{} }

// WithTx runs the function against a fresh mockTx and releases its
// deferred resources afterwards. Tests exercising transactional
// behavior assign WithTxFunc.
func (m *MockTxManager) WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	if m.WithTxFunc != nil {
		return m.WithTxFunc(ctx, txOpt, fn)
	}
	tx := &mockTx{}
	defer tx.done()
	return fn(ctx, tx)
}

// ---- In-memory Locker ----

type MockLocker struct {
	mu    sync.Mutex
	held  map[string]string
	Locks int

	TryLockFunc func(ctx context.Context, key string, ttl time.Duration) (string, error)
}

var _ usecase.Locker = (*MockLocker)(nil)

func NewMockLocker() *MockLocker {
	return &MockLocker{held: map[string]string{}}
}

func (l *MockLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if l.TryLockFunc != nil {
		return l.TryLockFunc(ctx, key, ttl)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.held[key]; ok {
		return "", domain.ErrLockNotAcquired
	}
	token := uuid.NewString()
	l.held[key] = token
	l.Locks++
	return token, nil
}

func (l *MockLocker) Unlock(ctx context.Context, key, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] != token {
		return domain.ErrNotFound
	}
	delete(l.held, key)
	return nil
}

// ---- Notification recorder ----

type notifyRecorder struct {
	mu   sync.Mutex
	sent []adapter.Notification
}

func (n *notifyRecorder) Enqueue(msg adapter.Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, msg)
}

func (n *notifyRecorder) Sent() []adapter.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]adapter.Notification, len(n.sent))
	copy(out, n.sent)
	return out
}

// newTestLogger creates a silent zerolog.Logger so test output stays clean.
func newTestLogger() *zerolog.Logger {
	logger := zerolog.New(io.Discard)
	return &logger
}
