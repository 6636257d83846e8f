package service

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/eRom/health-sub001/internal/models"
	"github.com/eRom/health-sub001/internal/repository"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fixedClock(t time.Time) Clock {
	return func() time.Time { return t }
}

// mockTx runs the function directly and counts calls.
type mockTx struct {
	mu    sync.Mutex
	calls int
}

func (m *mockTx) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	return fn(ctx)
}

// mockUserRepo is an in-memory user store. Delete runs the cascade hooks
// registered by the other in-memory repositories.
type mockUserRepo struct {
	mu       sync.Mutex
	users    map[uuid.UUID]*models.User
	cascades []func(uuid.UUID)
	listErr  error
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[uuid.UUID]*models.User)}
}

func (m *mockUserRepo) add(u *models.User) *models.User {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	if u.Role == "" {
		u.Role = models.RoleUser
	}
	if u.Locale == "" {
		u.Locale = models.LocaleFR
	}
	m.users[u.ID] = u
	return u
}

func (m *mockUserRepo) Create(ctx context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Email, user.Email) {
			return repository.ErrDuplicate
		}
	}
	m.add(user)
	return nil
}

func (m *mockUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.users[id], nil
}

func (m *mockUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return nil, nil
}

func (m *mockUserRepo) GetByOAuth(ctx context.Context, provider, providerID string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.OAuthProvider != nil && *u.OAuthProvider == provider &&
			u.OAuthProviderID != nil && *u.OAuthProviderID == providerID {
			return u, nil
		}
	}
	return nil, nil
}

func (m *mockUserRepo) UpdateProfile(ctx context.Context, id uuid.UUID, name, email string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		u.Name = name
		u.Email = email
	}
	return nil
}

func (m *mockUserRepo) UpdatePreferences(ctx context.Context, id uuid.UUID, locale models.Locale, theme models.Theme) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		u.Locale = locale
		u.Theme = theme
	}
	return nil
}

func (m *mockUserRepo) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		u.PasswordHash = &passwordHash
	}
	return nil
}

func (m *mockUserRepo) UpdateRole(ctx context.Context, id uuid.UUID, role models.Role) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		u.Role = role
	}
	return nil
}

func (m *mockUserRepo) UpdateLastLogin(ctx context.Context, id uuid.UUID) error {
	return nil
}

func (m *mockUserRepo) LinkOAuth(ctx context.Context, id uuid.UUID, provider, providerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		u.OAuthProvider = &provider
		u.OAuthProviderID = &providerID
	}
	return nil
}

func (m *mockUserRepo) MarkConsentGranted(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok || u.ConsentGrantedAt != nil {
		return false, nil
	}
	u.ConsentGrantedAt = &at
	return true, nil
}

func (m *mockUserRepo) Delete(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	delete(m.users, id)
	cascades := m.cascades
	m.mu.Unlock()
	for _, fn := range cascades {
		fn(id)
	}
	return nil
}

func (m *mockUserRepo) List(ctx context.Context, q models.UserListQuery) ([]*models.User, int64, error) {
	if m.listErr != nil {
		return nil, 0, m.listErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []*models.User
	for _, u := range m.users {
		if q.Search == "" || strings.Contains(strings.ToLower(u.Email), strings.ToLower(q.Search)) {
			all = append(all, u)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Email < all[j].Email })
	total := int64(len(all))
	if q.Offset >= len(all) {
		return nil, total, nil
	}
	end := q.Offset + q.Limit
	if end > len(all) {
		end = len(all)
	}
	return all[q.Offset:end], total, nil
}

func (m *mockUserRepo) CountByRole(ctx context.Context) (map[models.Role]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := make(map[models.Role]int64)
	for _, u := range m.users {
		counts[u.Role]++
	}
	return counts, nil
}

func (m *mockUserRepo) CountConsented(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, u := range m.users {
		if u.HasConsented() {
			n++
		}
	}
	return n, nil
}

type mockSessionRepo struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*models.Session
}

func newMockSessionRepo() *mockSessionRepo {
	return &mockSessionRepo{sessions: make(map[uuid.UUID]*models.Session)}
}

func (m *mockSessionRepo) Create(ctx context.Context, session *models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if session.ID == uuid.Nil {
		session.ID = uuid.New()
	}
	m.sessions[session.ID] = session
	return nil
}

func (m *mockSessionRepo) GetByToken(ctx context.Context, token string) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sessions {
		if s.Token == token {
			return s, nil
		}
	}
	return nil, nil
}

func (m *mockSessionRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Session
	for _, s := range m.sessions {
		if s.UserID == userID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *mockSessionRepo) Delete(ctx context.Context, userID, sessionID uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok || s.UserID != userID {
		return false, nil
	}
	delete(m.sessions, sessionID)
	return true, nil
}

func (m *mockSessionRepo) DeleteByToken(ctx context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, s := range m.sessions {
		if s.Token == token {
			delete(m.sessions, id)
		}
	}
	return nil
}

func (m *mockSessionRepo) DeleteByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	return m.deleteWhere(func(s *models.Session) bool { return s.UserID == userID }), nil
}

func (m *mockSessionRepo) DeleteOthers(ctx context.Context, userID, keepID uuid.UUID) (int64, error) {
	return m.deleteWhere(func(s *models.Session) bool { return s.UserID == userID && s.ID != keepID }), nil
}

func (m *mockSessionRepo) DeleteExpired(ctx context.Context) (int64, error) {
	now := time.Now()
	return m.deleteWhere(func(s *models.Session) bool { return s.Expired(now) }), nil
}

func (m *mockSessionRepo) deleteWhere(match func(*models.Session) bool) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, s := range m.sessions {
		if match(s) {
			delete(m.sessions, id)
			n++
		}
	}
	return n
}

func (m *mockSessionRepo) countFor(userID uuid.UUID) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, s := range m.sessions {
		if s.UserID == userID {
			n++
		}
	}
	return n
}

type mockConsentRepo struct {
	mu      sync.Mutex
	entries []*models.ConsentHistory
}

func (m *mockConsentRepo) Append(ctx context.Context, entry *models.ConsentHistory) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry.ID = uuid.NewString()
	m.entries = append(m.entries, entry)
	return nil
}

func (m *mockConsentRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.ConsentHistory, error) {
	var out []*models.ConsentHistory
	for _, e := range m.entries {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return out, nil
}

type mockVerificationRepo struct {
	mu    sync.Mutex
	items map[uuid.UUID]*models.Verification
}

func newMockVerificationRepo() *mockVerificationRepo {
	return &mockVerificationRepo{items: make(map[uuid.UUID]*models.Verification)}
}

func (m *mockVerificationRepo) Create(ctx context.Context, v *models.Verification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	m.items[v.ID] = v
	return nil
}

func (m *mockVerificationRepo) GetByValue(ctx context.Context, value string) (*models.Verification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, v := range m.items {
		if v.Value == value {
			copied := *v
			return &copied, nil
		}
	}
	return nil, nil
}

func (m *mockVerificationRepo) Consume(ctx context.Context, value string, now time.Time) (*models.Verification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, v := range m.items {
		if v.Value == value && now.Before(v.ExpiresAt) {
			delete(m.items, id)
			return v, nil
		}
	}
	return nil, nil
}

func (m *mockVerificationRepo) DeleteByID(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, id)
	return nil
}

func (m *mockVerificationRepo) DeleteByIdentifier(ctx context.Context, identifier string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, v := range m.items {
		if strings.EqualFold(v.Identifier, identifier) {
			delete(m.items, id)
			n++
		}
	}
	return n, nil
}

func (m *mockVerificationRepo) countFor(identifier string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, v := range m.items {
		if v.Identifier == identifier {
			n++
		}
	}
	return n
}

type mockSubscriptionRepo struct {
	byUser   map[uuid.UUID]*models.Subscription
	getErr   error
	upserted []*models.Subscription
}

func newMockSubscriptionRepo() *mockSubscriptionRepo {
	return &mockSubscriptionRepo{byUser: make(map[uuid.UUID]*models.Subscription)}
}

func (m *mockSubscriptionRepo) GetByUserID(ctx context.Context, userID uuid.UUID) (*models.Subscription, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	return m.byUser[userID], nil
}

func (m *mockSubscriptionRepo) GetByStripeSubscriptionID(ctx context.Context, stripeSubID string) (*models.Subscription, error) {
	for _, s := range m.byUser {
		if s.StripeSubscriptionID != nil && *s.StripeSubscriptionID == stripeSubID {
			return s, nil
		}
	}
	return nil, nil
}

func (m *mockSubscriptionRepo) GetByStripeCustomerID(ctx context.Context, customerID string) (*models.Subscription, error) {
	for _, s := range m.byUser {
		if s.StripeCustomerID != nil && *s.StripeCustomerID == customerID {
			return s, nil
		}
	}
	return nil, nil
}

func (m *mockSubscriptionRepo) Upsert(ctx context.Context, sub *models.Subscription) error {
	if existing, ok := m.byUser[sub.UserID]; ok {
		sub.ID = existing.ID
	} else if sub.ID == uuid.Nil {
		sub.ID = uuid.New()
	}
	m.byUser[sub.UserID] = sub
	m.upserted = append(m.upserted, sub)
	return nil
}

func (m *mockSubscriptionRepo) CountByStatus(ctx context.Context) (map[models.SubscriptionStatus]int64, error) {
	counts := make(map[models.SubscriptionStatus]int64)
	for _, s := range m.byUser {
		counts[s.Status]++
	}
	return counts, nil
}

type mockAssociationRepo struct {
	items  map[uuid.UUID]*models.Association
	locked []uuid.UUID
}

func newMockAssociationRepo() *mockAssociationRepo {
	return &mockAssociationRepo{items: make(map[uuid.UUID]*models.Association)}
}

func (m *mockAssociationRepo) Create(ctx context.Context, a *models.Association) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	m.items[a.ID] = a
	return nil
}

func (m *mockAssociationRepo) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Association, error) {
	m.locked = append(m.locked, id)
	return m.copyOf(m.items[id]), nil
}

func (m *mockAssociationRepo) GetByTokenForUpdate(ctx context.Context, token string) (*models.Association, error) {
	for _, a := range m.items {
		if a.InvitationToken == token {
			return m.copyOf(a), nil
		}
	}
	return nil, nil
}

func (m *mockAssociationRepo) GetByPairForUpdate(ctx context.Context, patientID, providerID uuid.UUID) (*models.Association, error) {
	for _, a := range m.items {
		if a.PatientID == patientID && a.ProviderID == providerID {
			return m.copyOf(a), nil
		}
	}
	return nil, nil
}

func (m *mockAssociationRepo) GetAcceptedBetween(ctx context.Context, userA, userB uuid.UUID) (*models.Association, error) {
	for _, a := range m.items {
		if a.Status != models.AssociationAccepted {
			continue
		}
		if (a.PatientID == userA && a.ProviderID == userB) || (a.PatientID == userB && a.ProviderID == userA) {
			return m.copyOf(a), nil
		}
	}
	return nil, nil
}

func (m *mockAssociationRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status models.AssociationStatus, respondedAt *time.Time) error {
	if a, ok := m.items[id]; ok {
		a.Status = status
		a.RespondedAt = respondedAt
	}
	return nil
}

func (m *mockAssociationRepo) Reopen(ctx context.Context, id uuid.UUID, token string, sentAt time.Time) error {
	if a, ok := m.items[id]; ok {
		a.Status = models.AssociationPending
		a.InvitationToken = token
		a.InvitationSentAt = sentAt
		a.RespondedAt = nil
	}
	return nil
}

func (m *mockAssociationRepo) ListForPatient(ctx context.Context, patientID uuid.UUID) ([]*models.Association, error) {
	var out []*models.Association
	for _, a := range m.items {
		if a.PatientID == patientID {
			out = append(out, m.copyOf(a))
		}
	}
	return out, nil
}

func (m *mockAssociationRepo) ListForProvider(ctx context.Context, providerID uuid.UUID) ([]*models.Association, error) {
	var out []*models.Association
	for _, a := range m.items {
		if a.ProviderID == providerID {
			out = append(out, m.copyOf(a))
		}
	}
	return out, nil
}

func (m *mockAssociationRepo) CountAccepted(ctx context.Context) (int64, error) {
	var n int64
	for _, a := range m.items {
		if a.Status == models.AssociationAccepted {
			n++
		}
	}
	return n, nil
}

func (m *mockAssociationRepo) copyOf(a *models.Association) *models.Association {
	if a == nil {
		return nil
	}
	c := *a
	return &c
}

func (m *mockAssociationRepo) deleteUser(id uuid.UUID) {
	for aid, a := range m.items {
		if a.PatientID == id || a.ProviderID == id {
			delete(m.items, aid)
		}
	}
}

type mockMessageRepo struct {
	messages []*models.Message
}

func (m *mockMessageRepo) Create(ctx context.Context, msg *models.Message) error {
	msg.ID = uuid.New()
	msg.CreatedAt = time.Now()
	m.messages = append(m.messages, msg)
	return nil
}

func (m *mockMessageRepo) ListByAssociation(ctx context.Context, associationID uuid.UUID) ([]*models.Message, error) {
	var out []*models.Message
	for _, msg := range m.messages {
		if msg.AssociationID == associationID {
			c := *msg
			out = append(out, &c)
		}
	}
	return out, nil
}

func (m *mockMessageRepo) MarkRead(ctx context.Context, associationID, recipientID uuid.UUID) (int64, error) {
	now := time.Now()
	var n int64
	for _, msg := range m.messages {
		if msg.AssociationID == associationID && msg.RecipientID == recipientID && msg.ReadAt == nil {
			msg.ReadAt = &now
			n++
		}
	}
	return n, nil
}

func (m *mockMessageRepo) CountUnread(ctx context.Context, recipientID uuid.UUID) (int64, error) {
	var n int64
	for _, msg := range m.messages {
		if msg.RecipientID == recipientID && msg.ReadAt == nil {
			n++
		}
	}
	return n, nil
}

type mockExerciseRepo struct {
	exercises   []*models.Exercise
	completions []*models.ExerciseCompletion
}

func (m *mockExerciseRepo) List(ctx context.Context, category *models.ExerciseCategory) ([]*models.Exercise, error) {
	var out []*models.Exercise
	for _, e := range m.exercises {
		if category == nil || e.Category == *category {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *mockExerciseRepo) GetBySlug(ctx context.Context, slug string) (*models.Exercise, error) {
	for _, e := range m.exercises {
		if e.Slug == slug {
			return e, nil
		}
	}
	return nil, nil
}

func (m *mockExerciseRepo) CreateCompletion(ctx context.Context, c *models.ExerciseCompletion) error {
	c.ID = uuid.New()
	m.completions = append(m.completions, c)
	return nil
}

func (m *mockExerciseRepo) ListCompletions(ctx context.Context, userID uuid.UUID, limit int) ([]*models.ExerciseCompletion, error) {
	var out []*models.ExerciseCompletion
	for _, c := range m.completions {
		if c.UserID == userID && len(out) < limit {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *mockExerciseRepo) CountCompletionsSince(ctx context.Context, since time.Time) (int64, error) {
	var n int64
	for _, c := range m.completions {
		if !c.CompletedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

type mockAuditRepo struct {
	mu   sync.Mutex
	logs []*models.AuditLog
}

func (m *mockAuditRepo) Create(ctx context.Context, log *models.AuditLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	log.ID = uuid.New()
	m.logs = append(m.logs, log)
	return nil
}

func (m *mockAuditRepo) List(ctx context.Context, query models.AuditLogQuery) ([]*models.AuditLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.AuditLog
	for _, l := range m.logs {
		if query.Event != nil && l.Event != *query.Event {
			continue
		}
		out = append(out, l)
	}
	return out, nil
}

func (m *mockAuditRepo) events() []models.AuditEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.AuditEvent, 0, len(m.logs))
	for _, l := range m.logs {
		out = append(out, l.Event)
	}
	return out
}

// MockMailer is a testify mock of the mailer.
type MockMailer struct {
	mock.Mock
}

func (m *MockMailer) SendPasswordReset(ctx context.Context, to string, locale models.Locale, resetURL string) error {
	args := m.Called(ctx, to, locale, resetURL)
	return args.Error(0)
}

func (m *MockMailer) SendInvitation(ctx context.Context, to string, locale models.Locale, providerName, acceptURL string) error {
	args := m.Called(ctx, to, locale, providerName, acceptURL)
	return args.Error(0)
}

// MockSubscriptionChecker is a testify mock of SubscriptionChecker.
type MockSubscriptionChecker struct {
	mock.Mock
}

func (m *MockSubscriptionChecker) HasAccess(ctx context.Context, userID uuid.UUID) (bool, error) {
	args := m.Called(ctx, userID)
	return args.Bool(0), args.Error(1)
}

// memoryEventStore keeps events in memory for the reset limiter.
type memoryEventStore struct {
	mu     sync.Mutex
	events map[string][]time.Time
}

func newMemoryEventStore() *memoryEventStore {
	return &memoryEventStore{events: make(map[string][]time.Time)}
}

func (s *memoryEventStore) ReserveEvent(ctx context.Context, key string, now time.Time, window, cooldown time.Duration, limit int) (time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var kept []time.Time
	for _, t := range s.events[key] {
		if !t.Before(now.Add(-window)) {
			kept = append(kept, t)
		}
	}
	if wait := eventWait(kept, now, window, cooldown, limit); wait > 0 {
		s.events[key] = kept
		return wait, nil
	}
	s.events[key] = append(kept, now)
	return 0, nil
}
