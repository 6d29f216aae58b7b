package portal

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"slices"

	"jobportal-bot/internal/models"
)

const (
	MaxLogoSize     = 2 << 20
	MaxDocumentSize = 5 << 20
)

var (
	ErrFileTooLarge = errors.New("file too large")
	ErrFileType     = errors.New("unsupported file type")
	ErrFileEmpty    = errors.New("file is empty")
)

var (
	logoTypes     = []string{"image/jpeg", "image/png"}
	documentTypes = []string{"application/pdf", "image/jpeg", "image/png"}
)

// Upload is a file attached to a multipart request.
type Upload struct {
	Name string
	Data []byte
}

// ContentType sniffs the type from the file content, ignoring whatever
// the sender claimed.
func (u Upload) ContentType() string {
	return http.DetectContentType(u.Data)
}

func validateUpload(u Upload, maxSize int, allowed []string) error {
	if len(u.Data) == 0 {
		return ErrFileEmpty
	}
	if len(u.Data) > maxSize {
		return fmt.Errorf("%w: %d bytes, limit %d", ErrFileTooLarge, len(u.Data), maxSize)
	}
	if ct := u.ContentType(); !slices.Contains(allowed, ct) {
		return fmt.Errorf("%w: %s", ErrFileType, ct)
	}
	return nil
}

// ValidateLogo accepts JPEG or PNG up to 2 MB.
func ValidateLogo(u Upload) error {
	return validateUpload(u, MaxLogoSize, logoTypes)
}

// ValidateDocument accepts PDF, JPEG or PNG up to 5 MB.
func ValidateDocument(u Upload) error {
	return validateUpload(u, MaxDocumentSize, documentTypes)
}

func (c *Client) CandidateProfile(ctx context.Context) (*models.CandidateProfile, error) {
	var p models.CandidateProfile
	if err := c.get(ctx, "/api/candidate/profile/", nil, &p); err != nil {
		return nil, fmt.Errorf("get candidate profile: %w", err)
	}
	return &p, nil
}

func (c *Client) UpdateCandidateProfile(ctx context.Context, patch map[string]any) (*models.CandidateProfile, error) {
	var p models.CandidateProfile
	if err := c.sendJSON(ctx, http.MethodPatch, "/api/candidate/profile/", patch, &p); err != nil {
		return nil, fmt.Errorf("update candidate profile: %w", err)
	}
	return &p, nil
}

// EmployerProfile returns ErrNotFound when the employer has not created
// a profile yet.
func (c *Client) EmployerProfile(ctx context.Context) (*models.EmployerProfile, error) {
	var p models.EmployerProfile
	if err := c.get(ctx, "/api/employer/profile/", nil, &p); err != nil {
		return nil, fmt.Errorf("get employer profile: %w", err)
	}
	return &p, nil
}

// SaveEmployerProfile submits the profile as multipart form data with an
// optional logo.
func (c *Client) SaveEmployerProfile(ctx context.Context, profile models.EmployerProfile, logo *Upload) (*models.EmployerProfile, error) {
	if logo != nil {
		if err := ValidateLogo(*logo); err != nil {
			return nil, err
		}
	}

	fields := map[string]string{
		"company_name": profile.CompanyName,
		"website":      profile.Website,
		"industry":     profile.Industry,
		"description":  profile.Description,
	}
	files := map[string]*Upload{}
	if logo != nil {
		files["logo"] = logo
	}

	var saved models.EmployerProfile
	if err := c.multipart(ctx, "/api/employer/profile/", fields, files, &saved); err != nil {
		return nil, fmt.Errorf("save employer profile: %w", err)
	}
	return &saved, nil
}

func (c *Client) UploadDocument(ctx context.Context, docType string, doc Upload) error {
	if err := ValidateDocument(doc); err != nil {
		return err
	}
	fields := map[string]string{"document_type": docType}
	if err := c.multipart(ctx, "/api/candidate/documents/", fields, map[string]*Upload{"file": &doc}, nil); err != nil {
		return fmt.Errorf("upload document: %w", err)
	}
	return nil
}

func (c *Client) multipart(ctx context.Context, path string, fields map[string]string, files map[string]*Upload, dest any) error {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for k, v := range fields {
		if v == "" {
			continue
		}
		if err := w.WriteField(k, v); err != nil {
			return fmt.Errorf("write field %s: %w", k, err)
		}
	}

	for field, u := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, field, u.Name))
		h.Set("Content-Type", u.ContentType())
		part, err := w.CreatePart(h)
		if err != nil {
			return fmt.Errorf("create part %s: %w", field, err)
		}
		if _, err := part.Write(u.Data); err != nil {
			return fmt.Errorf("write part %s: %w", field, err)
		}
	}

	if err := w.Close(); err != nil {
		return fmt.Errorf("close multipart: %w", err)
	}

	r := request{
		method:      http.MethodPost,
		path:        path,
		body:        buf.Bytes(),
		contentType: w.FormDataContentType(),
	}
	return c.do(ctx, r, dest)
}
