package api_client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strconv"

	"dashboard/internal/models"
)

func (c *Client) StudentCount(ctx context.Context) (int, error) {
	var out models.StudentCount
	if err := c.getJSON(ctx, "/students/count", &out); err != nil {
		return 0, err
	}
	return out.StudentCount, nil
}

func (c *Client) EventCount(ctx context.Context) (int, error) {
	var out models.EventCount
	if err := c.getJSON(ctx, "/events/count", &out); err != nil {
		return 0, err
	}
	return out.EventCount, nil
}

func (c *Client) SchoolCount(ctx context.Context) (int, error) {
	var out models.SchoolCount
	if err := c.getJSON(ctx, "/schools/count", &out); err != nil {
		return 0, err
	}
	return out.SchoolCount, nil
}

// WeeklyEvents returns the day buckets of GET /events/weekly in the order
// the API sent them.
func (c *Client) WeeklyEvents(ctx context.Context) ([]WeeklyBucket, error) {
	var out weeklyBuckets
	if err := c.getJSON(ctx, "/events/weekly", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Events(ctx context.Context, category models.EventCategory) ([]models.Event, error) {
	var out []models.Event
	if err := c.getJSON(ctx, "/events/"+string(category), &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Schools(ctx context.Context) ([]models.School, error) {
	var out []models.School
	if err := c.getJSON(ctx, "/schools", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateSchool returns the id assigned to the new organization.
func (c *Client) CreateSchool(ctx context.Context, orgName string) (int64, error) {
	var out models.CreateSchoolResponse
	if err := c.postJSON(ctx, "/schools", models.CreateSchoolInput{OrgName: orgName}, &out); err != nil {
		return 0, err
	}
	return out.SchoolID, nil
}

func (c *Client) Students(ctx context.Context) ([]models.Student, error) {
	var out []models.Student
	if err := c.getJSON(ctx, "/students", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateStudent returns the id assigned to the new student.
func (c *Client) CreateStudent(ctx context.Context, name string, organizationID int64) (int64, error) {
	var out models.CreateStudentResponse
	input := models.CreateStudentInput{StudentName: name, OrganizationID: organizationID}
	if err := c.postJSON(ctx, "/students", input, &out); err != nil {
		return 0, err
	}
	return out.StudentID, nil
}

func (c *Client) DeleteStudent(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, "/students/"+strconv.FormatInt(id, 10), nil, "", nil)
}

func (c *Client) FaceEncodings(ctx context.Context) ([]models.FaceEncoding, error) {
	var out []models.FaceEncoding
	if err := c.getJSON(ctx, "/face_encodings", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// FaceImage is the photo submitted for enrollment.
type FaceImage struct {
	Filename    string
	ContentType string
	Content     io.Reader
}

// EnrollFace uploads a photo for a student as multipart form data with the
// fields user_id and file.
func (c *Client) EnrollFace(ctx context.Context, userID int64, image FaceImage) error {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	if err := writer.WriteField("user_id", strconv.FormatInt(userID, 10)); err != nil {
		return fmt.Errorf("failed to write user_id field: %w", err)
	}

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, image.Filename))
	contentType := image.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	header.Set("Content-Type", contentType)

	part, err := writer.CreatePart(header)
	if err != nil {
		return fmt.Errorf("failed to create file part: %w", err)
	}
	if _, err := io.Copy(part, image.Content); err != nil {
		return fmt.Errorf("failed to copy image: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to close multipart body: %w", err)
	}

	return c.do(ctx, http.MethodPost, "/face_encodings", &body, writer.FormDataContentType(), nil)
}
