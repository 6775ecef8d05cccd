package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/musicclub/apiserver/internal/storage"
	"github.com/musicclub/apiserver/types"
)

const siteHomeKey = "site/home.json"

// legacyHomeDefaults fill keys the older home layout did not have.
var legacyHomeDefaults = map[string]any{
	"liveBadge":     "Now Live: Music Club",
	"heroHighlight": "Music Club",
	"ctaPrimary":    "Join us",
	"ctaSecondary":  "Learn more →",
	"section1Title": "Level up\nyour\nmusicianship",
	"section2Title": "Activities\nfor every\nplayer",
	"section2Desc":  "",
}

// SiteService keeps the landing page document in object storage.
type SiteService struct {
	objects ObjectStore
	mu      sync.Mutex
}

func NewSiteService(objects ObjectStore) *SiteService {
	return &SiteService{objects: objects}
}

// Home returns the landing page content, upgrading the legacy layout on read.
// A missing or unreadable document yields an upgraded empty page.
func (s *SiteService) Home(ctx context.Context) (types.SiteHome, error) {
	raw, err := s.read(ctx)
	if err != nil {
		return nil, err
	}
	return MigrateSiteHome(raw), nil
}

// UpdateHome shallow-merges patch over the current content and stores the result.
func (s *SiteService) UpdateHome(ctx context.Context, patch types.SiteHome) (types.SiteHome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.Home(ctx)
	if err != nil {
		return nil, err
	}
	for k, v := range patch {
		current[k] = v
	}

	data, err := json.MarshalIndent(current, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode home: %w", err)
	}
	if err := s.objects.Put(ctx, siteHomeKey, bytes.NewReader(data), int64(len(data)), "application/json"); err != nil {
		return nil, fmt.Errorf("store home: %w", err)
	}
	return current, nil
}

func (s *SiteService) read(ctx context.Context) (types.SiteHome, error) {
	body, err := s.objects.Get(ctx, siteHomeKey)
	if errors.Is(err, storage.ErrObjectNotFound) {
		return types.SiteHome{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load home: %w", err)
	}
	defer body.Close()

	home := types.SiteHome{}
	if err := json.NewDecoder(body).Decode(&home); err != nil && !errors.Is(err, io.EOF) {
		return types.SiteHome{}, nil
	}
	return home, nil
}

// MigrateSiteHome maps the legacy hero keys onto the current layout and fills
// defaults. Documents already in the current layout are returned unchanged.
func MigrateSiteHome(home types.SiteHome) types.SiteHome {
	for _, key := range []string{"siteName", "heroDesc", "heroHighlight", "liveBadge"} {
		if present(home[key]) {
			return home
		}
	}

	out := make(types.SiteHome, len(home)+len(legacyHomeDefaults))
	for k, v := range home {
		out[k] = v
	}
	if present(home["heroTitle"]) {
		out["siteName"] = home["heroTitle"]
	}
	if present(home["heroSubtitle"]) {
		out["heroDesc"] = home["heroSubtitle"]
	}
	for k, v := range legacyHomeDefaults {
		if out[k] == nil {
			out[k] = v
		}
	}
	if out["section1Desc"] == nil {
		about, _ := home["about"].(string)
		out["section1Desc"] = about
	}
	for _, key := range []string{"announcements", "links"} {
		if _, ok := out[key].([]any); !ok {
			out[key] = []any{}
		}
	}
	return out
}

func present(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case string:
		return t != ""
	case bool:
		return t
	}
	return true
}
