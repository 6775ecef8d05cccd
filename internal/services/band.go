package services

import (
	"context"
	"strings"
	"time"

	"github.com/musicclub/apiserver/types"
)

const (
	minBandYear       = 1900
	bandYearLookahead = 10
)

// BandRepository defines persistence operations for bands.
type BandRepository interface {
	List(ctx context.Context) ([]types.Band, error)
	Detail(ctx context.Context, id int) (types.BandDetail, error)
	Exists(ctx context.Context, id int) (bool, error)
	Create(ctx context.Context, band types.Band, members []types.BandMemberInput) (types.Band, error)
	Update(ctx context.Context, band types.Band) error
	Delete(ctx context.Context, id int) error
	AddMember(ctx context.Context, bandID int, member types.BandMemberInput) error
	ReplaceMembers(ctx context.Context, bandID int, members []types.BandMemberInput) error
	RemoveMember(ctx context.Context, bandID, memberID int) error
}

// BandInput is the editable part of a band.
type BandInput struct {
	Name        string
	Year        int
	Description *string
	Members     []types.BandMemberInput
}

type BandService struct {
	repo BandRepository
	now  func() time.Time
}

func NewBandService(repo BandRepository) *BandService {
	return &BandService{repo: repo, now: time.Now}
}

func (s *BandService) List(ctx context.Context) ([]types.Band, error) {
	return s.repo.List(ctx)
}

func (s *BandService) Get(ctx context.Context, id int) (types.BandDetail, error) {
	return s.repo.Detail(ctx, id)
}

// Create stores the band and its initial line-up atomically.
func (s *BandService) Create(ctx context.Context, in BandInput) (types.Band, error) {
	band, err := s.validate(in)
	if err != nil {
		return types.Band{}, err
	}
	if err := validateLineup(in.Members); err != nil {
		return types.Band{}, err
	}
	return s.repo.Create(ctx, band, in.Members)
}

func (s *BandService) Update(ctx context.Context, id int, in BandInput) (types.BandDetail, error) {
	band, err := s.validate(in)
	if err != nil {
		return types.BandDetail{}, err
	}
	band.ID = id
	if err := s.repo.Update(ctx, band); err != nil {
		return types.BandDetail{}, err
	}
	return s.repo.Detail(ctx, id)
}

// Delete removes a band. Bands with schedules are refused.
func (s *BandService) Delete(ctx context.Context, id int) error {
	return s.repo.Delete(ctx, id)
}

func (s *BandService) AddMember(ctx context.Context, bandID int, member types.BandMemberInput) error {
	if err := validateLineup([]types.BandMemberInput{member}); err != nil {
		return err
	}
	return s.repo.AddMember(ctx, bandID, member)
}

func (s *BandService) ReplaceMembers(ctx context.Context, bandID int, members []types.BandMemberInput) error {
	if err := validateLineup(members); err != nil {
		return err
	}
	return s.repo.ReplaceMembers(ctx, bandID, members)
}

func (s *BandService) RemoveMember(ctx context.Context, bandID, memberID int) error {
	return s.repo.RemoveMember(ctx, bandID, memberID)
}

func (s *BandService) validate(in BandInput) (types.Band, error) {
	name, err := required("name", in.Name)
	if err != nil {
		return types.Band{}, err
	}
	maxYear := s.now().Year() + bandYearLookahead
	if in.Year < minBandYear || in.Year > maxYear {
		return types.Band{}, invalidInput("year must be between %d and %d", minBandYear, maxYear)
	}

	band := types.Band{Name: name, Year: in.Year}
	if in.Description != nil {
		if d := strings.TrimSpace(*in.Description); d != "" {
			band.Description = &d
		}
	}
	return band, nil
}

func validateLineup(members []types.BandMemberInput) error {
	for i, m := range members {
		if m.MemberID <= 0 {
			return invalidInput("members[%d]: member_id is required", i)
		}
	}
	return nil
}
