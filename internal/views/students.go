package views

import (
	"context"
	"slices"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"dashboard/internal/models"
)

const (
	msgFetchStudents      = "Failed to fetch students."
	msgFetchOrganizations = "Failed to fetch organizations."
	msgEmptyStudentName   = "Student name cannot be empty."
	msgSelectOrganization = "Please select an organization."
	msgAddStudent         = "Failed to add student."
	msgDeleteStudent      = "Failed to delete student."
)

type StudentsAPI interface {
	Students(ctx context.Context) ([]models.Student, error)
	Schools(ctx context.Context) ([]models.School, error)
	CreateStudent(ctx context.Context, name string, organizationID int64) (int64, error)
	DeleteStudent(ctx context.Context, id int64) error
}

type StudentsState struct {
	Students []models.Student
	Schools  []models.School
	Error    string
}

// FilterStudents keeps students whose name contains q, ignoring case.
func FilterStudents(students []models.Student, q string) []models.Student {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return students
	}
	out := make([]models.Student, 0, len(students))
	for _, student := range students {
		if strings.Contains(strings.ToLower(student.Name), q) {
			out = append(out, student)
		}
	}
	return out
}

type Students struct {
	controller[StudentsState]
	logger *zap.Logger
}

func NewStudents(reg *Registry, logger *zap.Logger) *Students {
	return &Students{
		controller: controller[StudentsState]{reg: reg, view: ViewStudents},
		logger:     logger,
	}
}

func (v *Students) Mount(ctx context.Context, sessionID string, api StudentsAPI) (StudentsState, error) {
	return v.mount(ctx, sessionID, v.load(api))
}

func (v *Students) load(api StudentsAPI) func(context.Context) (StudentsState, error) {
	return func(ctx context.Context) (StudentsState, error) {
		var (
			state                   StudentsState
			studentsErr, schoolsErr error
		)

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			state.Students, studentsErr = api.Students(gctx)
			if fatal(studentsErr) {
				return studentsErr
			}
			return nil
		})
		g.Go(func() error {
			state.Schools, schoolsErr = api.Schools(gctx)
			if fatal(schoolsErr) {
				return schoolsErr
			}
			return nil
		})
		if err := g.Wait(); err != nil {
			return StudentsState{}, err
		}

		if schoolsErr != nil {
			v.logger.Error("Error fetching organizations", zap.Error(schoolsErr))
			state.Error = msgFetchOrganizations
		}
		if studentsErr != nil {
			v.logger.Error("Error fetching students", zap.Error(studentsErr))
			state.Error = msgFetchStudents
		}
		return state, nil
	}
}

// Add validates the form, creates the student and appends it to the loaded
// list without fetching the list again.
func (v *Students) Add(ctx context.Context, sessionID string, api StudentsAPI, name string, organizationID int64) (StudentsState, error) {
	if _, err := v.ensure(ctx, sessionID, v.load(api)); err != nil {
		return StudentsState{}, err
	}

	name = strings.TrimSpace(name)
	switch {
	case name == "":
		return v.fail(sessionID, msgEmptyStudentName), nil
	case organizationID <= 0:
		return v.fail(sessionID, msgSelectOrganization), nil
	}

	id, err := api.CreateStudent(ctx, name, organizationID)
	if fatal(err) {
		return StudentsState{}, err
	}
	if err != nil {
		v.logger.Error("Error adding student", zap.String("name", name), zap.Error(err))
		return v.fail(sessionID, msgAddStudent), nil
	}

	state, _ := v.update(sessionID, func(s StudentsState) StudentsState {
		s.Students = append(slices.Clip(s.Students), models.Student{ID: id, Name: name})
		s.Error = ""
		return s
	})
	return state, nil
}

// Delete removes the student on the server and then exactly that row from
// the loaded list. When the server refuses, the row stays.
func (v *Students) Delete(ctx context.Context, sessionID string, api StudentsAPI, id int64) (StudentsState, error) {
	if _, err := v.ensure(ctx, sessionID, v.load(api)); err != nil {
		return StudentsState{}, err
	}

	err := api.DeleteStudent(ctx, id)
	if fatal(err) {
		return StudentsState{}, err
	}
	if err != nil {
		v.logger.Error("Error deleting student", zap.Int64("student_id", id), zap.Error(err))
		return v.fail(sessionID, msgDeleteStudent), nil
	}

	state, _ := v.update(sessionID, func(s StudentsState) StudentsState {
		s.Students = slices.DeleteFunc(slices.Clone(s.Students), func(student models.Student) bool {
			return student.ID == id
		})
		s.Error = ""
		return s
	})
	return state, nil
}

func (v *Students) fail(sessionID, message string) StudentsState {
	state, ok := v.update(sessionID, func(s StudentsState) StudentsState {
		s.Error = message
		return s
	})
	if !ok {
		state.Error = message
	}
	return state
}
