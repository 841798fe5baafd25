// Rollcall - Attendance Time Synchronization and Presence Verification
// Copyright 2026 Rollcall Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rollcall-attendance/rollcall

package attendance

import (
	"context"

	"github.com/rollcall-attendance/rollcall/internal/cache"
	"github.com/rollcall-attendance/rollcall/internal/models"
)

// Cache-aside roster reads. Sites change rarely and rotation windows span
// weeks, so every clock-in re-reading them from DuckDB is pure waste; the
// importer invalidates by tag (site:{id}, subject:{id}) when upstream data
// actually changes. A nil cache or any cache miss falls through to the
// store, and store errors are never cached.

func (s *Service) site(ctx context.Context, id string) (*models.Site, error) {
	if id == "" {
		return nil, nil
	}

	key := cache.GenerateKey("site", id)
	if s.cache != nil {
		if v, ok := s.cache.Get(key); ok {
			if site, ok := v.(*models.Site); ok {
				return site, nil
			}
			var site models.Site
			if err := cache.Decode(v, &site); err == nil {
				return &site, nil
			}
		}
	}

	site, err := s.store.GetSite(ctx, id)
	if err != nil {
		return nil, err
	}
	if site != nil && s.cache != nil {
		s.cache.Set(key, site, "site:"+id)
	}
	return site, nil
}

// siteName resolves a display name for result payloads, falling back to the
// raw ID when the site is not in the roster.
func (s *Service) siteName(ctx context.Context, id string) string {
	site, err := s.site(ctx, id)
	if err != nil || site == nil {
		return id
	}
	return site.Name
}

func (s *Service) rotationsFor(ctx context.Context, subjectID, siteID string) ([]models.Rotation, error) {
	key := cache.GenerateKey("rotations", []string{subjectID, siteID})
	if s.cache != nil {
		if v, ok := s.cache.Get(key); ok {
			if rotations, ok := v.([]models.Rotation); ok {
				return rotations, nil
			}
			var rotations []models.Rotation
			if err := cache.Decode(v, &rotations); err == nil {
				return rotations, nil
			}
		}
	}

	rotations, err := s.store.ListRotationsForSubject(ctx, subjectID, siteID)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		s.cache.Set(key, rotations, "subject:"+subjectID)
	}
	return rotations, nil
}

func (s *Service) rotationByID(ctx context.Context, id string) (*models.Rotation, error) {
	key := cache.GenerateKey("rotation", id)
	if s.cache != nil {
		if v, ok := s.cache.Get(key); ok {
			if rotation, ok := v.(*models.Rotation); ok {
				return rotation, nil
			}
			var rotation models.Rotation
			if err := cache.Decode(v, &rotation); err == nil {
				return &rotation, nil
			}
		}
	}

	rotation, err := s.store.GetRotation(ctx, id)
	if err != nil {
		return nil, err
	}
	if rotation != nil && s.cache != nil {
		s.cache.Set(key, rotation, "subject:"+rotation.SubjectID)
	}
	return rotation, nil
}

func (s *Service) assignmentFor(ctx context.Context, subjectID, siteID string) (*models.SiteAssignment, error) {
	key := cache.GenerateKey("assignment", []string{subjectID, siteID})
	if s.cache != nil {
		if v, ok := s.cache.Get(key); ok {
			if assignment, ok := v.(*models.SiteAssignment); ok {
				return assignment, nil
			}
			var assignment models.SiteAssignment
			if err := cache.Decode(v, &assignment); err == nil {
				return &assignment, nil
			}
		}
	}

	assignment, err := s.store.GetActiveSiteAssignment(ctx, subjectID, siteID)
	if err != nil {
		return nil, err
	}
	if assignment != nil && s.cache != nil {
		s.cache.Set(key, assignment, "subject:"+subjectID)
	}
	return assignment, nil
}
