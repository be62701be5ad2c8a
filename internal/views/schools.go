package views

import (
	"context"
	"slices"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"dashboard/internal/models"
)

const (
	msgFetchSchools    = "Failed to fetch schools. Please try again."
	msgEmptySchoolName = "School name cannot be empty."
	msgAddSchool       = "Failed to add school. Please try again."
)

// PerPageOptions are the page sizes offered for the schools table.
var PerPageOptions = []int{10, 25, 50}

const defaultPerPage = 10

// ParsePerPage accepts one of PerPageOptions and falls back to the default.
func ParsePerPage(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil || !slices.Contains(PerPageOptions, n) {
		return defaultPerPage
	}
	return n
}

type SchoolsAPI interface {
	Schools(ctx context.Context) ([]models.School, error)
	CreateSchool(ctx context.Context, orgName string) (int64, error)
}

type SchoolsState struct {
	Schools []models.School
	Error   string
}

// SchoolsPage is the visible slice of a filtered schools list.
type SchoolsPage struct {
	Rows    []models.School
	Shown   int
	Total   int
	PerPage int
}

// PageSchools filters by organization name, ignoring case, and keeps the
// first perPage matches.
func PageSchools(schools []models.School, q string, perPage int) SchoolsPage {
	q = strings.ToLower(strings.TrimSpace(q))

	matched := schools
	if q != "" {
		matched = make([]models.School, 0, len(schools))
		for _, school := range schools {
			if strings.Contains(strings.ToLower(school.OrgName), q) {
				matched = append(matched, school)
			}
		}
	}

	rows := matched[:min(perPage, len(matched))]
	return SchoolsPage{Rows: rows, Shown: len(rows), Total: len(matched), PerPage: perPage}
}

type Schools struct {
	controller[SchoolsState]
	logger *zap.Logger
}

func NewSchools(reg *Registry, logger *zap.Logger) *Schools {
	return &Schools{
		controller: controller[SchoolsState]{reg: reg, view: ViewSchools},
		logger:     logger,
	}
}

func (v *Schools) Mount(ctx context.Context, sessionID string, api SchoolsAPI) (SchoolsState, error) {
	return v.mount(ctx, sessionID, v.load(api))
}

func (v *Schools) load(api SchoolsAPI) func(context.Context) (SchoolsState, error) {
	return func(ctx context.Context) (SchoolsState, error) {
		schools, err := api.Schools(ctx)
		switch {
		case fatal(err):
			return SchoolsState{}, err
		case err != nil:
			v.logger.Error("Error fetching schools", zap.Error(err))
			return SchoolsState{Error: msgFetchSchools}, nil
		}
		return SchoolsState{Schools: schools}, nil
	}
}

// Add creates the organization and appends it with the returned id.
func (v *Schools) Add(ctx context.Context, sessionID string, api SchoolsAPI, orgName string) (SchoolsState, error) {
	if _, err := v.ensure(ctx, sessionID, v.load(api)); err != nil {
		return SchoolsState{}, err
	}

	orgName = strings.TrimSpace(orgName)
	if orgName == "" {
		return v.fail(sessionID, msgEmptySchoolName), nil
	}

	id, err := api.CreateSchool(ctx, orgName)
	if fatal(err) {
		return SchoolsState{}, err
	}
	if err != nil {
		v.logger.Error("Error adding school", zap.String("org_name", orgName), zap.Error(err))
		return v.fail(sessionID, msgAddSchool), nil
	}

	state, _ := v.update(sessionID, func(s SchoolsState) SchoolsState {
		s.Schools = append(slices.Clip(s.Schools), models.School{ID: id, OrgName: orgName})
		s.Error = ""
		return s
	})
	return state, nil
}

func (v *Schools) fail(sessionID, message string) SchoolsState {
	state, ok := v.update(sessionID, func(s SchoolsState) SchoolsState {
		s.Error = message
		return s
	})
	if !ok {
		state.Error = message
	}
	return state
}
