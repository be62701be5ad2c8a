package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"dashboard/internal/api_client"
	"dashboard/internal/models"
	"dashboard/internal/views"
)

type dashboardView struct {
	State views.DashboardState
	Peak  int
}

func (h *Handler) Dashboard(c *gin.Context) {
	session, client := h.client(c)

	state, err := h.dashboard.Mount(c.Request.Context(), session.ID, client)
	if err != nil {
		h.fail(c, err)
		return
	}

	view := dashboardView{State: state}
	for _, point := range state.Week {
		view.Peak = max(view.Peak, point.Count)
	}
	h.render(c, "dashboard", "Обзор", view)
}

type eventsView struct {
	State      views.EventsState
	Rows       []models.Event
	Categories []models.EventCategoryOption
	Query      string
	Selected   *models.Event
}

func (h *Handler) newEventsView(c *gin.Context, state views.EventsState) eventsView {
	query := c.Query("q")
	view := eventsView{
		State:      state,
		Rows:       views.FilterEvents(state.Events, query),
		Categories: models.EventCategories,
		Query:      query,
	}
	if id, err := strconv.ParseInt(c.Query("event"), 10, 64); err == nil {
		if event, ok := state.Find(id); ok {
			view.Selected = &event
		}
	}
	return view
}

func (h *Handler) Events(c *gin.Context) {
	session, client := h.client(c)
	category := models.ParseEventCategory(c.Query("category"))

	state, err := h.events.Mount(c.Request.Context(), session.ID, client, category)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.render(c, "events", "Журнал событий", h.newEventsView(c, state))
}

func (h *Handler) RefreshEventCount(c *gin.Context) {
	session, client := h.client(c)

	state, err := h.events.RefreshCount(c.Request.Context(), session.ID, client)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.render(c, "events", "Журнал событий", h.newEventsView(c, state))
}

type studentsView struct {
	State views.StudentsState
	Rows  []models.Student
	Query string
}

func (h *Handler) renderStudents(c *gin.Context, state views.StudentsState, query string) {
	h.render(c, "students", "Ученики", studentsView{
		State: state,
		Rows:  views.FilterStudents(state.Students, query),
		Query: query,
	})
}

func (h *Handler) Students(c *gin.Context) {
	session, client := h.client(c)

	state, err := h.students.Mount(c.Request.Context(), session.ID, client)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.renderStudents(c, state, c.Query("q"))
}

func (h *Handler) AddStudent(c *gin.Context) {
	session, client := h.client(c)

	organizationID, _ := strconv.ParseInt(c.PostForm("organization_id"), 10, 64)

	state, err := h.students.Add(c.Request.Context(), session.ID, client, c.PostForm("student_name"), organizationID)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.renderStudents(c, state, c.PostForm("q"))
}

func (h *Handler) DeleteStudent(c *gin.Context) {
	session, client := h.client(c)

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.String(http.StatusBadRequest, "Некорректный идентификатор ученика.")
		return
	}

	state, err := h.students.Delete(c.Request.Context(), session.ID, client, id)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.renderStudents(c, state, c.PostForm("q"))
}

type schoolsView struct {
	State          views.SchoolsState
	Page           views.SchoolsPage
	PerPageOptions []int
	Query          string
}

func (h *Handler) renderSchools(c *gin.Context, state views.SchoolsState, query string, perPage int) {
	h.render(c, "schools", "Организации", schoolsView{
		State:          state,
		Page:           views.PageSchools(state.Schools, query, perPage),
		PerPageOptions: views.PerPageOptions,
		Query:          query,
	})
}

func (h *Handler) Schools(c *gin.Context) {
	session, client := h.client(c)

	state, err := h.schools.Mount(c.Request.Context(), session.ID, client)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.renderSchools(c, state, c.Query("q"), views.ParsePerPage(c.Query("per_page")))
}

func (h *Handler) AddSchool(c *gin.Context) {
	session, client := h.client(c)

	state, err := h.schools.Add(c.Request.Context(), session.ID, client, c.PostForm("org_name"))
	if err != nil {
		h.fail(c, err)
		return
	}
	h.renderSchools(c, state, c.PostForm("q"), views.ParsePerPage(c.PostForm("per_page")))
}

type faceEncodingsView struct {
	State views.FaceEncodingsState
}

func (h *Handler) FaceEncodings(c *gin.Context) {
	session, client := h.client(c)

	state, err := h.faceEncodings.Mount(c.Request.Context(), session.ID, client)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.render(c, "face_encodings", "Идентификация лиц", faceEncodingsView{State: state})
}

// maxUploadBody leaves room for the form fields next to the image.
const maxUploadBody = views.MaxImageSize + 1<<20

func (h *Handler) EnrollFace(c *gin.Context) {
	session, client := h.client(c)
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadBody)

	var (
		image    *api_client.FaceImage
		imageErr error
		tooLarge *http.MaxBytesError
	)
	header, err := c.FormFile("file")
	switch {
	case errors.Is(err, http.ErrMissingFile):
	case errors.As(err, &tooLarge):
		imageErr = views.ErrImageTooLarge
	case err != nil:
		imageErr = err
	default:
		contentType := header.Header.Get("Content-Type")
		imageErr = views.CheckImage(contentType, header.Size)
		if imageErr == nil {
			file, err := header.Open()
			if err != nil {
				h.fail(c, err)
				return
			}
			defer file.Close()
			image = &api_client.FaceImage{Filename: header.Filename, ContentType: contentType, Content: file}
		}
	}

	userID, _ := strconv.ParseInt(c.PostForm("user_id"), 10, 64)

	state, err := h.faceEncodings.Enroll(c.Request.Context(), session.ID, client, userID, image, imageErr)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.render(c, "face_encodings", "Идентификация лиц", faceEncodingsView{State: state})
}
