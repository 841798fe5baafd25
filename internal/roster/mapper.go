// Rollcall - Attendance Time Synchronization and Presence Verification
// Copyright 2026 Rollcall Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rollcall-attendance/rollcall

package roster

import (
	"fmt"
	"strings"
	"time"

	"github.com/rollcall-attendance/rollcall/internal/models"
)

// dateLayout is how the upstream system writes rotation dates.
const dateLayout = "2006-01-02"

// Mapper validates export rows and converts them to roster models.
// Invalid rows return an error so the importer can skip and count them
// without aborting the run.
type Mapper struct{}

// NewMapper creates a new field mapper.
func NewMapper() *Mapper {
	return &Mapper{}
}

// Site converts a SiteRecord, validating identity and coordinates.
//
// Coordinates are optional but must come as a pair: a site with only a
// latitude would silently fail-open in the geofence, which is worse
// than rejecting the row here where the registrar can see it.
func (m *Mapper) Site(rec SiteRecord) (*models.Site, error) {
	id := strings.TrimSpace(rec.ID)
	if id == "" {
		return nil, fmt.Errorf("site missing id")
	}
	name := strings.TrimSpace(rec.Name)
	if name == "" {
		return nil, fmt.Errorf("site %s missing name", id)
	}

	if (rec.Latitude == nil) != (rec.Longitude == nil) {
		return nil, fmt.Errorf("site %s has partial coordinates", id)
	}
	if rec.Latitude != nil {
		if *rec.Latitude < -90 || *rec.Latitude > 90 {
			return nil, fmt.Errorf("site %s latitude %f out of range", id, *rec.Latitude)
		}
		if *rec.Longitude < -180 || *rec.Longitude > 180 {
			return nil, fmt.Errorf("site %s longitude %f out of range", id, *rec.Longitude)
		}
	}

	site := &models.Site{
		ID:              id,
		Name:            name,
		Latitude:        rec.Latitude,
		Longitude:       rec.Longitude,
		EnforceGeofence: rec.EnforceGeofence,
		Active:          rec.Active,
		CreatedAt:       time.Now().UTC(),
	}

	if rec.RadiusM != nil {
		if *rec.RadiusM < 0 {
			return nil, fmt.Errorf("site %s has negative radius %f", id, *rec.RadiusM)
		}
		site.AllowedRadiusM = *rec.RadiusM
	}

	return site, nil
}

// Rotation converts a RotationRecord, normalizing status and parsing the
// date window.
func (m *Mapper) Rotation(rec RotationRecord) (*models.Rotation, error) {
	id := strings.TrimSpace(rec.ID)
	if id == "" {
		return nil, fmt.Errorf("rotation missing id")
	}
	subjectID := strings.TrimSpace(rec.SubjectID)
	if subjectID == "" {
		return nil, fmt.Errorf("rotation %s missing subject_id", id)
	}
	siteID := strings.TrimSpace(rec.SiteID)
	if siteID == "" {
		return nil, fmt.Errorf("rotation %s missing site_id", id)
	}

	status, err := normalizeStatus(rec.Status)
	if err != nil {
		return nil, fmt.Errorf("rotation %s: %w", id, err)
	}

	start, err := time.Parse(dateLayout, strings.TrimSpace(rec.StartDate))
	if err != nil {
		return nil, fmt.Errorf("rotation %s has invalid start_date %q", id, rec.StartDate)
	}

	rotation := &models.Rotation{
		ID:        id,
		SubjectID: subjectID,
		SiteID:    siteID,
		Status:    status,
		StartDate: start,
		CreatedAt: time.Now().UTC(),
	}

	if rec.EndDate != nil && strings.TrimSpace(*rec.EndDate) != "" {
		end, err := time.Parse(dateLayout, strings.TrimSpace(*rec.EndDate))
		if err != nil {
			return nil, fmt.Errorf("rotation %s has invalid end_date %q", id, *rec.EndDate)
		}
		if end.Before(start) {
			return nil, fmt.Errorf("rotation %s ends %s before it starts %s", id, *rec.EndDate, rec.StartDate)
		}
		rotation.EndDate = &end
	}

	return rotation, nil
}

// Assignment converts an AssignmentRecord.
func (m *Mapper) Assignment(rec AssignmentRecord) (*models.SiteAssignment, error) {
	id := strings.TrimSpace(rec.ID)
	if id == "" {
		return nil, fmt.Errorf("assignment missing id")
	}
	subjectID := strings.TrimSpace(rec.SubjectID)
	if subjectID == "" {
		return nil, fmt.Errorf("assignment %s missing subject_id", id)
	}
	siteID := strings.TrimSpace(rec.SiteID)
	if siteID == "" {
		return nil, fmt.Errorf("assignment %s missing site_id", id)
	}

	assignment := &models.SiteAssignment{
		ID:        id,
		SubjectID: subjectID,
		SiteID:    siteID,
		Active:    rec.Active,
		CreatedAt: time.Now().UTC(),
	}

	if rec.RotationID != nil && strings.TrimSpace(*rec.RotationID) != "" {
		v := strings.TrimSpace(*rec.RotationID)
		assignment.RotationID = &v
	}

	return assignment, nil
}

// normalizeStatus maps upstream status spellings onto RotationStatus.
// Upstream exports have shipped both "canceled" and "cancelled".
func normalizeStatus(raw string) (models.RotationStatus, error) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "ACTIVE":
		return models.RotationActive, nil
	case "SCHEDULED":
		return models.RotationScheduled, nil
	case "COMPLETED":
		return models.RotationCompleted, nil
	case "CANCELLED", "CANCELED":
		return models.RotationCancelled, nil
	default:
		return "", fmt.Errorf("unknown status %q", raw)
	}
}
