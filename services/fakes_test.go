package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Dosada05/carnival-system/models"
	"github.com/Dosada05/carnival-system/repositories"
	"github.com/Dosada05/carnival-system/storage"
	"github.com/shopspring/decimal"
)

var errInjected = errors.New("injected failure")

// memStore is an in-memory database. WithinTx snapshots it and restores the snapshot when fn fails,
// and holds a mutex for the whole transaction the way a carnival row lock serialises writers.
type memStore struct {
	txMu sync.Mutex

	carnivals map[int]*models.Carnival
	regs      map[int]*models.AttendanceRegistration
	assigns   map[int]*models.PlayerAssignment
	users     map[int]*models.User
	clubs     map[int]*models.Club
	players   map[int]*models.ClubPlayer
	nextID    int

	// fail makes the named repository method return errInjected.
	fail map[string]bool
}

func newMemStore() *memStore {
	return &memStore{
		carnivals: map[int]*models.Carnival{},
		regs:      map[int]*models.AttendanceRegistration{},
		assigns:   map[int]*models.PlayerAssignment{},
		users:     map[int]*models.User{},
		clubs:     map[int]*models.Club{},
		players:   map[int]*models.ClubPlayer{},
		nextID:    1000,
		fail:      map[string]bool{},
	}
}

func (s *memStore) id() int {
	s.nextID++
	return s.nextID
}

func (s *memStore) check(method string) error {
	if s.fail[method] {
		return errInjected
	}
	return nil
}

type snapshot struct {
	carnivals map[int]models.Carnival
	regs      map[int]models.AttendanceRegistration
	assigns   map[int]models.PlayerAssignment
	nextID    int
}

func (s *memStore) snapshot() snapshot {
	snap := snapshot{
		carnivals: make(map[int]models.Carnival, len(s.carnivals)),
		regs:      make(map[int]models.AttendanceRegistration, len(s.regs)),
		assigns:   make(map[int]models.PlayerAssignment, len(s.assigns)),
		nextID:    s.nextID,
	}
	for id, c := range s.carnivals {
		snap.carnivals[id] = *c
	}
	for id, r := range s.regs {
		snap.regs[id] = *r
	}
	for id, a := range s.assigns {
		snap.assigns[id] = *a
	}
	return snap
}

func (s *memStore) restore(snap snapshot) {
	s.carnivals = make(map[int]*models.Carnival, len(snap.carnivals))
	for id, c := range snap.carnivals {
		c := c
		s.carnivals[id] = &c
	}
	s.regs = make(map[int]*models.AttendanceRegistration, len(snap.regs))
	for id, r := range snap.regs {
		r := r
		s.regs[id] = &r
	}
	s.assigns = make(map[int]*models.PlayerAssignment, len(snap.assigns))
	for id, a := range snap.assigns {
		a := a
		s.assigns[id] = &a
	}
	s.nextID = snap.nextID
}

func (s *memStore) WithinTx(ctx context.Context, fn func(exec repositories.SQLExecutor) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	snap := s.snapshot()
	if err := fn(nil); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

// Seed helpers.

func (s *memStore) addClub(c models.Club) *models.Club {
	c.IsActive = true
	s.clubs[c.ID] = &c
	return &c
}

func (s *memStore) addUser(u models.User) *models.User {
	if u.PasswordHash == "" {
		u.PasswordHash = "x"
	}
	s.users[u.ID] = &u
	return &u
}

func (s *memStore) addPlayer(p models.ClubPlayer) {
	p.IsActive = true
	s.players[p.ID] = &p
}

func (s *memStore) addCarnival(c models.Carnival) {
	s.carnivals[c.ID] = &c
}

func (s *memStore) carnival(id int) *models.Carnival {
	c := *s.carnivals[id]
	return &c
}

func (s *memStore) registration(id int) *models.AttendanceRegistration {
	r := *s.regs[id]
	return &r
}

// carnivalRepo

type memCarnivalRepo struct{ s *memStore }

func (r memCarnivalRepo) Create(_ context.Context, _ repositories.SQLExecutor, c *models.Carnival) error {
	if err := r.s.check("CarnivalRepository.Create"); err != nil {
		return err
	}
	if c.ExternalImportID != nil {
		for _, other := range r.s.carnivals {
			if other.ExternalImportID != nil && *other.ExternalImportID == *c.ExternalImportID {
				return repositories.ErrCarnivalImportConflict
			}
		}
	}
	c.ID = r.s.id()
	c.CreatedAt = time.Now().UTC()
	c.UpdatedAt = c.CreatedAt
	stored := *c
	r.s.carnivals[c.ID] = &stored
	return nil
}

func (r memCarnivalRepo) GetByID(_ context.Context, _ repositories.SQLExecutor, id int) (*models.Carnival, error) {
	c, ok := r.s.carnivals[id]
	if !ok {
		return nil, repositories.ErrCarnivalNotFound
	}
	out := *c
	return &out, nil
}

func (r memCarnivalRepo) GetByIDForUpdate(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Carnival, error) {
	return r.GetByID(ctx, exec, id)
}

func (r memCarnivalRepo) GetByExternalImportID(_ context.Context, _ repositories.SQLExecutor, externalID string) (*models.Carnival, error) {
	for _, c := range r.s.carnivals {
		if c.ExternalImportID != nil && *c.ExternalImportID == externalID {
			out := *c
			return &out, nil
		}
	}
	return nil, repositories.ErrCarnivalNotFound
}

func (r memCarnivalRepo) List(_ context.Context, filter repositories.ListCarnivalsFilter) ([]*models.Carnival, error) {
	if err := r.s.check("CarnivalRepository.List"); err != nil {
		return nil, err
	}
	out := make([]*models.Carnival, 0)
	for _, c := range r.s.carnivals {
		if filter.State != nil && (c.State == nil || *c.State != *filter.State) {
			continue
		}
		if filter.ActiveOnly && !c.IsActive {
			continue
		}
		if filter.Claimable && (c.IsManuallyEntered || !c.HasExternalProvenance() || c.OwnerUserID != nil || c.HostClubID != nil) {
			continue
		}
		cp := *c
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].ID < out[j].ID
	})
	if filter.Offset > 0 {
		if filter.Offset >= len(out) {
			return []*models.Carnival{}, nil
		}
		out = out[filter.Offset:]
	}
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (r memCarnivalRepo) UpdateOwnership(_ context.Context, _ repositories.SQLExecutor, c *models.Carnival) error {
	if err := r.s.check("CarnivalRepository.UpdateOwnership"); err != nil {
		return err
	}
	stored, ok := r.s.carnivals[c.ID]
	if !ok {
		return repositories.ErrCarnivalNotFound
	}
	stored.HostClubID = c.HostClubID
	stored.OwnerUserID = c.OwnerUserID
	stored.ClaimedAt = c.ClaimedAt
	stored.OrganiserContactName = c.OrganiserContactName
	stored.OrganiserContactEmail = c.OrganiserContactEmail
	stored.OrganiserContactPhone = c.OrganiserContactPhone
	stored.OriginalExternalContactEmail = c.OriginalExternalContactEmail
	return nil
}

func (r memCarnivalRepo) UpdateImported(_ context.Context, _ repositories.SQLExecutor, c *models.Carnival) error {
	stored, ok := r.s.carnivals[c.ID]
	if !ok {
		return repositories.ErrCarnivalNotFound
	}
	stored.Title = c.Title
	stored.Date = c.Date
	stored.EndDate = c.EndDate
	stored.Location = c.Location
	stored.State = c.State
	stored.IsManuallyEntered = false
	stored.ExternalSyncTimestamp = c.ExternalSyncTimestamp
	stored.OrganiserContactName = c.OrganiserContactName
	stored.OrganiserContactEmail = c.OrganiserContactEmail
	stored.OrganiserContactPhone = c.OrganiserContactPhone
	return nil
}

func (r memCarnivalRepo) UpdateFees(_ context.Context, _ repositories.SQLExecutor, id int, teamFee, perPlayerFee decimal.Decimal) error {
	stored, ok := r.s.carnivals[id]
	if !ok {
		return repositories.ErrCarnivalNotFound
	}
	stored.TeamRegistrationFee = teamFee
	stored.PerPlayerFee = perPlayerFee
	return nil
}

func (r memCarnivalRepo) UpdatePromoImageKey(_ context.Context, id int, key *string) error {
	stored, ok := r.s.carnivals[id]
	if !ok {
		return repositories.ErrCarnivalNotFound
	}
	stored.PromoImageKey = key
	return nil
}

func (r memCarnivalRepo) Deactivate(_ context.Context, _ repositories.SQLExecutor, id int) error {
	stored, ok := r.s.carnivals[id]
	if !ok {
		return repositories.ErrCarnivalNotFound
	}
	stored.IsActive = false
	return nil
}

func (r memCarnivalRepo) RecountRegistrations(_ context.Context, _ repositories.SQLExecutor, id int) (int, error) {
	if err := r.s.check("CarnivalRepository.RecountRegistrations"); err != nil {
		return 0, err
	}
	stored, ok := r.s.carnivals[id]
	if !ok {
		return 0, repositories.ErrCarnivalNotFound
	}
	count := 0
	for _, reg := range r.s.regs {
		if reg.CarnivalID == id && reg.IsActive && reg.ApprovalStatus == models.ApprovalApproved {
			count++
		}
	}
	stored.CurrentRegistrations = count
	return count, nil
}

// registrationRepo

type memRegistrationRepo struct{ s *memStore }

func (r memRegistrationRepo) Create(_ context.Context, _ repositories.SQLExecutor, reg *models.AttendanceRegistration) error {
	if err := r.s.check("RegistrationRepository.Create"); err != nil {
		return err
	}
	if reg.IsActive {
		for _, other := range r.s.regs {
			if other.IsActive && other.CarnivalID == reg.CarnivalID && other.ClubID == reg.ClubID {
				return repositories.ErrRegistrationConflict
			}
		}
	}
	reg.ID = r.s.id()
	reg.CreatedAt = time.Now().UTC()
	reg.UpdatedAt = reg.CreatedAt
	stored := *reg
	stored.Club = nil
	r.s.regs[reg.ID] = &stored
	return nil
}

func (r memRegistrationRepo) GetByID(_ context.Context, _ repositories.SQLExecutor, id int) (*models.AttendanceRegistration, error) {
	reg, ok := r.s.regs[id]
	if !ok {
		return nil, repositories.ErrRegistrationNotFound
	}
	out := *reg
	return &out, nil
}

func (r memRegistrationRepo) FindActiveByCarnivalAndClub(_ context.Context, _ repositories.SQLExecutor, carnivalID, clubID int) (*models.AttendanceRegistration, error) {
	for _, reg := range r.s.regs {
		if reg.IsActive && reg.CarnivalID == carnivalID && reg.ClubID == clubID {
			out := *reg
			return &out, nil
		}
	}
	return nil, repositories.ErrRegistrationNotFound
}

func (r memRegistrationRepo) ListByCarnival(_ context.Context, _ repositories.SQLExecutor, carnivalID int, activeOnly bool) ([]*models.AttendanceRegistration, error) {
	out := make([]*models.AttendanceRegistration, 0)
	for _, reg := range r.s.regs {
		if reg.CarnivalID != carnivalID || (activeOnly && !reg.IsActive) {
			continue
		}
		cp := *reg
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DisplayOrder < out[j].DisplayOrder })
	return out, nil
}

func (r memRegistrationRepo) CountApproved(_ context.Context, _ repositories.SQLExecutor, carnivalID int) (int, error) {
	count := 0
	for _, reg := range r.s.regs {
		if reg.CarnivalID == carnivalID && reg.IsActive && reg.ApprovalStatus == models.ApprovalApproved {
			count++
		}
	}
	return count, nil
}

func (r memRegistrationRepo) CountActive(_ context.Context, _ repositories.SQLExecutor, carnivalID int) (int, error) {
	count := 0
	for _, reg := range r.s.regs {
		if reg.CarnivalID == carnivalID && reg.IsActive {
			count++
		}
	}
	return count, nil
}

func (r memRegistrationRepo) MaxDisplayOrder(_ context.Context, _ repositories.SQLExecutor, carnivalID int) (int, error) {
	max := 0
	for _, reg := range r.s.regs {
		if reg.CarnivalID == carnivalID && reg.DisplayOrder > max {
			max = reg.DisplayOrder
		}
	}
	return max, nil
}

func (r memRegistrationRepo) Update(_ context.Context, _ repositories.SQLExecutor, reg *models.AttendanceRegistration) error {
	if err := r.s.check("RegistrationRepository.Update"); err != nil {
		return err
	}
	stored, ok := r.s.regs[reg.ID]
	if !ok {
		return repositories.ErrRegistrationNotFound
	}
	stored.NumberOfTeams = reg.NumberOfTeams
	stored.PlayerCount = reg.PlayerCount
	stored.ContactPerson = reg.ContactPerson
	stored.ContactEmail = reg.ContactEmail
	stored.ContactPhone = reg.ContactPhone
	stored.Notes = reg.Notes
	stored.SpecialRequirements = reg.SpecialRequirements
	stored.ApprovalStatus = reg.ApprovalStatus
	stored.ApprovedAt = reg.ApprovedAt
	stored.ApprovedByUserID = reg.ApprovedByUserID
	stored.RejectionReason = reg.RejectionReason
	stored.IsActive = reg.IsActive
	return nil
}

func (r memRegistrationRepo) UpdatePayment(_ context.Context, _ repositories.SQLExecutor, reg *models.AttendanceRegistration) error {
	if err := r.s.check("RegistrationRepository.UpdatePayment"); err != nil {
		return err
	}
	stored, ok := r.s.regs[reg.ID]
	if !ok {
		return repositories.ErrRegistrationNotFound
	}
	stored.PaymentAmount = reg.PaymentAmount
	stored.IsPaid = reg.IsPaid
	stored.PaymentDate = reg.PaymentDate
	stored.PaidByExemption = reg.PaidByExemption
	return nil
}

// assignmentRepo

type memAssignmentRepo struct{ s *memStore }

func (r memAssignmentRepo) Create(_ context.Context, _ repositories.SQLExecutor, a *models.PlayerAssignment) error {
	if _, ok := r.s.players[a.PlayerID]; !ok {
		return repositories.ErrAssignmentPlayerInvalid
	}
	for _, other := range r.s.assigns {
		if other.IsActive && other.RegistrationID == a.RegistrationID && other.PlayerID == a.PlayerID {
			return repositories.ErrAssignmentConflict
		}
	}
	a.ID = r.s.id()
	a.CreatedAt = time.Now().UTC()
	stored := *a
	stored.Player = nil
	r.s.assigns[a.ID] = &stored
	return nil
}

func (r memAssignmentRepo) GetByID(_ context.Context, _ repositories.SQLExecutor, id int) (*models.PlayerAssignment, error) {
	a, ok := r.s.assigns[id]
	if !ok {
		return nil, repositories.ErrAssignmentNotFound
	}
	out := *a
	return &out, nil
}

func (r memAssignmentRepo) ListByRegistration(_ context.Context, _ repositories.SQLExecutor, registrationID int) ([]*models.PlayerAssignment, error) {
	out := make([]*models.PlayerAssignment, 0)
	for _, a := range r.s.assigns {
		if a.RegistrationID == registrationID && a.IsActive {
			cp := *a
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r memAssignmentRepo) UpdateStatus(_ context.Context, _ repositories.SQLExecutor, id int, status models.AttendanceStatus) error {
	a, ok := r.s.assigns[id]
	if !ok {
		return repositories.ErrAssignmentNotFound
	}
	a.AttendanceStatus = status
	return nil
}

func (r memAssignmentRepo) Deactivate(_ context.Context, _ repositories.SQLExecutor, id int) error {
	a, ok := r.s.assigns[id]
	if !ok {
		return repositories.ErrAssignmentNotFound
	}
	a.IsActive = false
	return nil
}

func (r memAssignmentRepo) CountConfirmed(_ context.Context, _ repositories.SQLExecutor, registrationID int) (int, error) {
	count := 0
	for _, a := range r.s.assigns {
		if a.RegistrationID == registrationID && a.IsActive && a.AttendanceStatus == models.AttendanceConfirmed {
			count++
		}
	}
	return count, nil
}

// directory

type memUserRepo struct{ s *memStore }

func (r memUserRepo) GetByID(_ context.Context, id int) (*models.User, error) {
	u, ok := r.s.users[id]
	if !ok {
		return nil, repositories.ErrUserNotFound
	}
	out := *u
	return &out, nil
}

func (r memUserRepo) GetByEmail(_ context.Context, email string) (*models.User, error) {
	for _, u := range r.s.users {
		if strings.EqualFold(u.Email, email) {
			out := *u
			return &out, nil
		}
	}
	return nil, repositories.ErrUserNotFound
}

type memClubRepo struct{ s *memStore }

func (r memClubRepo) GetByID(_ context.Context, id int) (*models.Club, error) {
	c, ok := r.s.clubs[id]
	if !ok {
		return nil, repositories.ErrClubNotFound
	}
	out := *c
	out.PrimaryDelegate = nil
	ids := make([]int, 0)
	for uid, u := range r.s.users {
		if u.BelongsTo(id) && u.Role == models.RolePrimaryDelegate && u.IsActive {
			ids = append(ids, uid)
		}
	}
	if len(ids) > 0 {
		sort.Ints(ids)
		d := *r.s.users[ids[0]]
		out.PrimaryDelegate = &d
	}
	return &out, nil
}

func (r memClubRepo) GetPlayer(_ context.Context, playerID int) (*models.ClubPlayer, error) {
	p, ok := r.s.players[playerID]
	if !ok {
		return nil, repositories.ErrPlayerNotFound
	}
	out := *p
	return &out, nil
}

// Side-effect recorders.

type sentNotification struct {
	Kind       string
	CarnivalID int
	ClubID     int
	Email      string
	Reason     string
}

type recordingNotifier struct {
	mu    sync.Mutex
	sent  []sentNotification
	panic bool
}

func (n *recordingNotifier) add(s sentNotification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.panic {
		panic("notifier exploded")
	}
	n.sent = append(n.sent, s)
}

func (n *recordingNotifier) NotifyClaim(_ context.Context, c *models.Carnival, _ *models.User, club *models.Club, email string) {
	n.add(sentNotification{Kind: "claim", CarnivalID: c.ID, ClubID: club.ID, Email: email})
}

func (n *recordingNotifier) NotifyApproval(_ context.Context, c *models.Carnival, club *models.Club, _ string) {
	n.add(sentNotification{Kind: "approval", CarnivalID: c.ID, ClubID: club.ID})
}

func (n *recordingNotifier) NotifyRejection(_ context.Context, c *models.Carnival, club *models.Club, _ string, reason string) {
	n.add(sentNotification{Kind: "rejection", CarnivalID: c.ID, ClubID: club.ID, Reason: reason})
}

func (n *recordingNotifier) kinds() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, 0, len(n.sent))
	for _, s := range n.sent {
		out = append(out, s.Kind)
	}
	return out
}

type recordingPublisher struct {
	mu       sync.Mutex
	events   []string
	payloads []any
}

func (p *recordingPublisher) Publish(_ int, eventType string, payload any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, eventType)
	p.payloads = append(p.payloads, payload)
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.events...)
}

type memUploader struct {
	objects map[string]string
	deleted []string
}

func (u *memUploader) Upload(_ context.Context, key, contentType string, reader io.Reader) (*storage.UploadResult, error) {
	if u.objects == nil {
		u.objects = map[string]string{}
	}
	u.objects[key] = contentType
	if _, err := io.Copy(io.Discard, reader); err != nil {
		return nil, err
	}
	return &storage.UploadResult{Key: key, Location: u.GetPublicURL(key)}, nil
}

func (u *memUploader) Delete(_ context.Context, key string) error {
	delete(u.objects, key)
	u.deleted = append(u.deleted, key)
	return nil
}

func (u *memUploader) GetPublicURL(key string) string {
	return "https://cdn.example.org/" + key
}

// Fixture.

var fixedNow = time.Date(2026, 2, 10, 9, 30, 0, 0, time.UTC)

const (
	clubHost      = 1
	clubVisitors  = 2
	clubNorthern  = 3
	clubNoPrimary = 4

	userAdmin         = 10
	userHostPrimary   = 11
	userHostDelegate  = 12
	userVisitorsPrim  = 21
	userNorthernPrim  = 31
	userNoPrimaryDel  = 41
	userInactive      = 50
	carnivalImported  = 100
	carnivalManual    = 101
	carnivalLimited   = 102
	playerVisitorsOne = 201
	playerVisitorsTwo = 202
	playerNorthern    = 301
)

type fixture struct {
	store         *memStore
	notifier      *recordingNotifier
	events        *recordingPublisher
	uploader      *memUploader
	ownership     *OwnershipService
	registrations *RegistrationService
	carnivals     *CarnivalService
}

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

func newFixture() *fixture {
	s := newMemStore()

	s.addClub(models.Club{ID: clubHost, Name: "Harbour Hawks", State: strPtr("NSW"), ContactEmail: strPtr("hawks@example.org")})
	s.addClub(models.Club{ID: clubVisitors, Name: "Valley Vipers", State: strPtr("NSW")})
	s.addClub(models.Club{ID: clubNorthern, Name: "Northern Nomads", State: strPtr("QLD")})
	s.addClub(models.Club{ID: clubNoPrimary, Name: "Plains Pumas", State: strPtr("NSW")})

	s.addUser(models.User{ID: userAdmin, FirstName: "Ada", LastName: "Admin", Email: "admin@example.org", Role: models.RoleAdmin, IsActive: true})
	s.addUser(models.User{ID: userHostPrimary, FirstName: "Hana", LastName: "Host", Email: "hana@hawks.example", ClubID: intPtr(clubHost), Role: models.RolePrimaryDelegate, IsActive: true})
	s.addUser(models.User{ID: userHostDelegate, FirstName: "Hugo", LastName: "Helper", Email: "hugo@hawks.example", Phone: strPtr("0400 000 012"), ClubID: intPtr(clubHost), Role: models.RoleDelegate, IsActive: true})
	s.addUser(models.User{ID: userVisitorsPrim, FirstName: "Vera", LastName: "Vale", Email: "vera@vipers.example", ClubID: intPtr(clubVisitors), Role: models.RolePrimaryDelegate, IsActive: true})
	s.addUser(models.User{ID: userNorthernPrim, FirstName: "Ned", LastName: "North", Email: "ned@nomads.example", ClubID: intPtr(clubNorthern), Role: models.RolePrimaryDelegate, IsActive: true})
	s.addUser(models.User{ID: userNoPrimaryDel, FirstName: "Pat", LastName: "Plains", Email: "pat@pumas.example", ClubID: intPtr(clubNoPrimary), Role: models.RoleDelegate, IsActive: true})
	s.addUser(models.User{ID: userInactive, FirstName: "Ina", LastName: "Active", Email: "ina@vipers.example", ClubID: intPtr(clubVisitors), Role: models.RoleDelegate, IsActive: false})

	s.addPlayer(models.ClubPlayer{ID: playerVisitorsOne, ClubID: clubVisitors, FirstName: "Vic", LastName: "One"})
	s.addPlayer(models.ClubPlayer{ID: playerVisitorsTwo, ClubID: clubVisitors, FirstName: "Val", LastName: "Two"})
	s.addPlayer(models.ClubPlayer{ID: playerNorthern, ClubID: clubNorthern, FirstName: "Nia", LastName: "Three"})

	synced := fixedNow.Add(-48 * time.Hour)
	fees := func(c models.Carnival) models.Carnival {
		c.TeamRegistrationFee = decimal.NewFromInt(50)
		c.PerPlayerFee = decimal.NewFromInt(10)
		c.IsActive = true
		c.IsRegistrationOpen = true
		c.Date = fixedNow.AddDate(0, 1, 0)
		return c
	}
	s.addCarnival(fees(models.Carnival{
		ID: carnivalImported, Title: "Coastal Carnival", State: strPtr("NSW"),
		ExternalImportID: strPtr("feed-100"), ExternalSyncTimestamp: &synced,
		OrganiserContactName: strPtr("Feed Contact"), OrganiserContactEmail: strPtr("feed@example.org"),
	}))
	claimedAt := fixedNow.Add(-24 * time.Hour)
	s.addCarnival(fees(models.Carnival{
		ID: carnivalManual, Title: "Hawks Invitational", State: strPtr("NSW"), IsManuallyEntered: true,
		OwnerUserID: intPtr(userHostPrimary), HostClubID: intPtr(clubHost), ClaimedAt: &claimedAt,
	}))
	s.addCarnival(fees(models.Carnival{
		ID: carnivalLimited, Title: "Limited Cup", State: strPtr("NSW"), MaxTeams: intPtr(2),
		ExternalImportID: strPtr("feed-102"), ExternalSyncTimestamp: &synced,
	}))

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	notifier := &recordingNotifier{}
	events := &recordingPublisher{}
	uploader := &memUploader{}

	carnivalRepo := memCarnivalRepo{s}
	regRepo := memRegistrationRepo{s}
	assignRepo := memAssignmentRepo{s}
	userRepo := memUserRepo{s}
	clubRepo := memClubRepo{s}

	ownership := NewOwnershipService(s, carnivalRepo, regRepo, assignRepo, userRepo, clubRepo, notifier, logger).WithEvents(events)
	ownership.now = func() time.Time { return fixedNow }
	registrations := NewRegistrationService(s, carnivalRepo, regRepo, assignRepo, userRepo, clubRepo, notifier, logger).WithEvents(events)
	registrations.now = func() time.Time { return fixedNow }
	carnivals := NewCarnivalService(s, carnivalRepo, regRepo, assignRepo, userRepo, clubRepo, uploader, logger).WithEvents(events)
	carnivals.now = func() time.Time { return fixedNow }

	return &fixture{
		store:         s,
		notifier:      notifier,
		events:        events,
		uploader:      uploader,
		ownership:     ownership,
		registrations: registrations,
		carnivals:     carnivals,
	}
}

func details(teams, players int) RegistrationDetails {
	return RegistrationDetails{NumberOfTeams: teams, PlayerCount: intPtr(players)}
}
