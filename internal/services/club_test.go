package services

import (
	"context"
	"testing"
	"time"

	"github.com/musicclub/apiserver/internal/store"
	"github.com/musicclub/apiserver/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockBandRepo struct {
	mock.Mock
}

func (m *mockBandRepo) List(ctx context.Context) ([]types.Band, error) {
	args := m.Called(ctx)
	return args.Get(0).([]types.Band), args.Error(1)
}

func (m *mockBandRepo) Detail(ctx context.Context, id int) (types.BandDetail, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(types.BandDetail), args.Error(1)
}

func (m *mockBandRepo) Exists(ctx context.Context, id int) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *mockBandRepo) Create(ctx context.Context, band types.Band, members []types.BandMemberInput) (types.Band, error) {
	args := m.Called(ctx, band, members)
	return args.Get(0).(types.Band), args.Error(1)
}

func (m *mockBandRepo) Update(ctx context.Context, band types.Band) error {
	return m.Called(ctx, band).Error(0)
}

func (m *mockBandRepo) Delete(ctx context.Context, id int) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockBandRepo) AddMember(ctx context.Context, bandID int, member types.BandMemberInput) error {
	return m.Called(ctx, bandID, member).Error(0)
}

func (m *mockBandRepo) ReplaceMembers(ctx context.Context, bandID int, members []types.BandMemberInput) error {
	return m.Called(ctx, bandID, members).Error(0)
}

func (m *mockBandRepo) RemoveMember(ctx context.Context, bandID, memberID int) error {
	return m.Called(ctx, bandID, memberID).Error(0)
}

func fixedNow() time.Time { return time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC) }

func TestBandCreateValidatesYearAndLineup(t *testing.T) {
	repo := new(mockBandRepo)
	svc := NewBandService(repo)
	svc.now = fixedNow
	ctx := context.Background()

	_, err := svc.Create(ctx, BandInput{Name: "Old", Year: 1899})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = svc.Create(ctx, BandInput{Name: "Future", Year: 2036})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = svc.Create(ctx, BandInput{Name: "  ", Year: 2020})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = svc.Create(ctx, BandInput{Name: "Lineup", Year: 2020, Members: []types.BandMemberInput{{MemberID: 0}}})
	assert.ErrorIs(t, err, ErrInvalidInput)

	blank := "   "
	members := []types.BandMemberInput{{MemberID: 3}}
	repo.On("Create", mock.Anything, types.Band{Name: "The Chords", Year: 2035}, members).
		Return(types.Band{ID: 1, Name: "The Chords", Year: 2035, MemberCount: 1}, nil)

	band, err := svc.Create(ctx, BandInput{Name: " The Chords ", Year: 2035, Description: &blank, Members: members})
	require.NoError(t, err)
	assert.Equal(t, 1, band.MemberCount)
	repo.AssertExpectations(t)
}

func TestBandDeleteInUse(t *testing.T) {
	repo := new(mockBandRepo)
	repo.On("Delete", mock.Anything, 4).Return(store.ErrInUse)

	err := NewBandService(repo).Delete(context.Background(), 4)
	assert.ErrorIs(t, err, store.ErrInUse)
}

type mockMemberRepo struct {
	mock.Mock
	MemberRepository
}

func (m *mockMemberRepo) Create(ctx context.Context, userID int, joinDate string, status types.MemberStatus) (types.Member, error) {
	args := m.Called(ctx, userID, joinDate, status)
	return args.Get(0).(types.Member), args.Error(1)
}

func (m *mockMemberRepo) UserID(ctx context.Context, id int) (int, error) {
	args := m.Called(ctx, id)
	return args.Int(0), args.Error(1)
}

type stubRoles struct {
	caller, target int
	role           string
}

func (s *stubRoles) ChangeRole(_ context.Context, callerID, targetID int, rawRole string) (types.RoleChangeEvent, error) {
	s.caller, s.target, s.role = callerID, targetID, rawRole
	return types.RoleChangeEvent{UserID: targetID, NewRole: types.Role(rawRole)}, nil
}

func TestMemberCreateDefaults(t *testing.T) {
	repo := new(mockMemberRepo)
	users := new(mockUserRepo)
	svc := NewMemberService(repo, users, &stubRoles{})
	svc.now = fixedNow
	ctx := context.Background()

	users.On("GetByID", mock.Anything, 5).Return(types.User{ID: 5}, nil)
	users.On("GetByID", mock.Anything, 6).Return(types.User{}, store.ErrNotFound)
	repo.On("Create", mock.Anything, 5, "2025-06-01", types.MemberActive).Return(types.Member{ID: 1, UserID: 5}, nil)

	member, err := svc.Create(ctx, 5, "", "")
	require.NoError(t, err)
	assert.Equal(t, 5, member.UserID)

	_, err = svc.Create(ctx, 6, "", "")
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = svc.Create(ctx, 5, "2025-13-40", "")
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.Create(ctx, 5, "", "banned")
	assert.ErrorIs(t, err, ErrInvalidInput)
	repo.AssertExpectations(t)
}

func TestMemberChangeRoleGoesThroughRoleService(t *testing.T) {
	repo := new(mockMemberRepo)
	roles := &stubRoles{}
	svc := NewMemberService(repo, new(mockUserRepo), roles)

	repo.On("UserID", mock.Anything, 9).Return(42, nil)
	_, err := svc.ChangeRole(context.Background(), 1, 9, "committee")
	require.NoError(t, err)
	assert.Equal(t, 1, roles.caller)
	assert.Equal(t, 42, roles.target)
	assert.Equal(t, "committee", roles.role)
}

type recordingFinances struct {
	FinanceRepository
	patch   types.FinancePatch
	created types.Finance
}

func (r *recordingFinances) Update(_ context.Context, _ int, patch types.FinancePatch) error {
	r.patch = patch
	return nil
}

func (r *recordingFinances) Create(_ context.Context, f types.Finance) (int, error) {
	r.created = f
	return 1, nil
}

func TestFinanceValidation(t *testing.T) {
	repo := &recordingFinances{}
	svc := NewFinanceService(repo)
	ctx := context.Background()

	assert.ErrorIs(t, svc.Update(ctx, 1, types.FinancePatch{}), ErrInvalidInput)

	bad := types.FinanceType("gift")
	assert.ErrorIs(t, svc.Update(ctx, 1, types.FinancePatch{Type: &bad}), ErrInvalidInput)

	category := " gear "
	require.NoError(t, svc.Update(ctx, 1, types.FinancePatch{Category: &category}))
	assert.Equal(t, "gear", *repo.patch.Category)

	_, err := svc.Create(ctx, types.Finance{Type: types.FinanceIncome, Category: "dues", Amount: decimal.NewFromInt(10), Date: "March"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	empty := ""
	_, err = svc.Create(ctx, types.Finance{Type: types.FinanceExpense, Category: "dues", Amount: decimal.NewFromInt(10), Date: "2025-03-01", Description: &empty})
	require.NoError(t, err)
	assert.Nil(t, repo.created.Description)

	_, err = svc.MonthlySummary(ctx, 12)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestProjectValidation(t *testing.T) {
	valid := types.Project{Name: "Concert", Budget: decimal.NewFromInt(5000), StartDate: "2025-01-01", EndDate: "2025-02-01"}

	p, err := validateProject(valid)
	require.NoError(t, err)
	assert.Equal(t, types.ProjectPending, p.Status)

	backwards := valid
	backwards.EndDate = "2024-12-31"
	_, err = validateProject(backwards)
	assert.ErrorIs(t, err, ErrInvalidInput)

	negative := valid
	negative.Budget = decimal.NewFromInt(-1)
	_, err = validateProject(negative)
	assert.ErrorIs(t, err, ErrInvalidInput)

	status := valid
	status.Status = "cancelled"
	_, err = validateProject(status)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestEquipmentValidation(t *testing.T) {
	_, err := validateEquipment(types.Equipment{Name: "Amp", Code: "", Status: "ok"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	item, err := validateEquipment(types.Equipment{Name: " Amp ", Code: "A-1", Status: "ok"})
	require.NoError(t, err)
	assert.Equal(t, "Amp", item.Name)
}
