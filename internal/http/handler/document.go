package handler

import (
	"mime/multipart"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"docarchive/internal/http/middleware"
	"docarchive/internal/model"
	"docarchive/internal/service"
	"docarchive/internal/validation"
)

// metadataRequest is accepted as JSON, urlencoded or multipart form fields.
type metadataRequest struct {
	Recipient string `json:"recipient" form:"recipient" validate:"notblank,max=255"`
	Origin    string `json:"origin" form:"origin" validate:"notblank,max=255"`
	Date      string `json:"date" form:"date" validate:"required,isodate"`
	Place     string `json:"place" form:"place" validate:"notblank,max=255"`
	Reason    string `json:"reason" form:"reason"`
}

// toMetadata must only be called after validation.
func (r metadataRequest) toMetadata() model.Metadata {
	d, _ := model.ParseDate(r.Date)
	m := model.Metadata{
		Recipient: strings.TrimSpace(r.Recipient),
		Origin:    strings.TrimSpace(r.Origin),
		Date:      d,
		Place:     strings.TrimSpace(r.Place),
	}
	if reason := strings.TrimSpace(r.Reason); reason != "" {
		m.Reason = &reason
	}
	return m
}

type listQuery struct {
	Recipient string `query:"recipient" validate:"max=255"`
	Place     string `query:"place" validate:"max=255"`
	DateFrom  string `query:"dateFrom" validate:"omitempty,isodate"`
	DateTo    string `query:"dateTo" validate:"omitempty,isodate"`
}

func (q listQuery) toFilter() model.ListFilter {
	f := model.ListFilter{
		Recipient: strings.TrimSpace(q.Recipient),
		Place:     strings.TrimSpace(q.Place),
	}
	if d, err := model.ParseDate(q.DateFrom); err == nil {
		f.DateFrom = &d
	}
	if d, err := model.ParseDate(q.DateTo); err == nil {
		f.DateTo = &d
	}
	return f
}

type createResponse struct {
	ID int64 `json:"id"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type deleteResponse struct {
	Message         string   `json:"message"`
	ID              int64    `json:"id"`
	RemovedFiles    int      `json:"removed_files"`
	CleanupFailures []string `json:"cleanup_failures,omitempty"`
}

// ListDocuments returns documents with their files, newest date first.
//
//	@Summary	List documents
//	@Tags		documents
//	@Produce	json
//	@Security	BearerAuth
//	@Param		recipient	query		string	false	"Recipient substring"
//	@Param		place		query		string	false	"Place substring"
//	@Param		dateFrom	query		string	false	"Inclusive lower bound (YYYY-MM-DD)"
//	@Param		dateTo		query		string	false	"Inclusive upper bound (YYYY-MM-DD)"
//	@Success	200			{array}		model.DocumentSummary
//	@Failure	400			{object}	errorPayload
//	@Failure	401			{object}	errorPayload
//	@Router		/api/documents [get]
func ListDocuments(svc service.DocumentService, v *validation.Validator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var q listQuery
		if err := c.QueryParser(&q); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_QUERY", "invalid query parameters")
		}
		if err := v.Struct(q); err != nil {
			return writeValidationError(c, err)
		}

		items, err := svc.List(c.UserContext(), q.toFilter())
		if err != nil {
			return writeServiceError(c, err)
		}
		if items == nil {
			items = []model.DocumentSummary{}
		}
		return c.JSON(items)
	}
}

// CreateDocument stores a document with up to ten attached files.
//
//	@Summary	Create document
//	@Tags		documents
//	@Accept		multipart/form-data
//	@Produce	json
//	@Security	BearerAuth
//	@Param		recipient	formData	string	true	"Recipient"
//	@Param		origin		formData	string	true	"Origin"
//	@Param		date		formData	string	true	"Date (YYYY-MM-DD)"
//	@Param		place		formData	string	true	"Place"
//	@Param		reason		formData	string	false	"Reason"
//	@Param		files		formData	file	false	"Attachments (max 10)"
//	@Success	201			{object}	createResponse
//	@Failure	400			{object}	errorPayload
//	@Failure	401			{object}	errorPayload
//	@Failure	500			{object}	errorPayload
//	@Router		/api/documents [post]
func CreateDocument(svc service.DocumentService, v *validation.Validator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req metadataRequest
		if err := c.BodyParser(&req); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "invalid request body")
		}
		if err := v.Struct(req); err != nil {
			return writeValidationError(c, err)
		}

		var headers []*multipart.FileHeader
		if form, err := c.MultipartForm(); err == nil {
			headers = form.File["files"]
		}
		if len(headers) > service.MaxFiles {
			return writeError(c, fiber.StatusBadRequest, "TOO_MANY_FILES", service.ErrTooManyFiles.Error())
		}

		uploads := make([]service.FileUpload, 0, len(headers))
		for _, fh := range headers {
			f, err := fh.Open()
			if err != nil {
				return writeError(c, fiber.StatusBadRequest, "FILE_OPEN_ERROR", "cannot open uploaded file")
			}
			defer f.Close()

			uploads = append(uploads, service.FileUpload{
				Reader:       f,
				OriginalName: fh.Filename,
				ContentType:  fh.Header.Get("Content-Type"),
				Size:         fh.Size,
			})
		}

		ownerID, _ := middleware.UserID(c)
		id, err := svc.Create(c.UserContext(), req.toMetadata(), uploads, ownerID)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(createResponse{ID: id})
	}
}

// UpdateDocument overwrites the metadata of a document. Files are not changed.
//
//	@Summary	Update document metadata
//	@Tags		documents
//	@Accept		json
//	@Produce	json
//	@Security	BearerAuth
//	@Param		id		path		int				true	"Document ID"
//	@Param		body	body		metadataRequest	true	"Metadata"
//	@Success	200		{object}	messageResponse
//	@Failure	400		{object}	errorPayload
//	@Failure	404		{object}	errorPayload
//	@Router		/api/documents/{id} [put]
func UpdateDocument(svc service.DocumentService, v *validation.Validator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := documentID(c)
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}

		var req metadataRequest
		if err := c.BodyParser(&req); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "invalid request body")
		}
		if err := v.Struct(req); err != nil {
			return writeValidationError(c, err)
		}

		if err := svc.Update(c.UserContext(), id, req.toMetadata()); err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(messageResponse{Message: "Document updated"})
	}
}

// DeleteDocument removes a document, its file rows and its blobs.
//
//	@Summary	Delete document
//	@Tags		documents
//	@Produce	json
//	@Security	BearerAuth
//	@Param		id	path		int	true	"Document ID"
//	@Success	200	{object}	deleteResponse
//	@Failure	400	{object}	errorPayload
//	@Failure	404	{object}	errorPayload
//	@Router		/api/documents/{id} [delete]
func DeleteDocument(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := documentID(c)
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}

		res, err := svc.Delete(c.UserContext(), id)
		if err != nil {
			return writeServiceError(c, err)
		}

		out := deleteResponse{
			Message:      "Document deleted",
			ID:           res.ID,
			RemovedFiles: res.RemovedFiles,
		}
		for _, f := range res.CleanupFailures {
			out.CleanupFailures = append(out.CleanupFailures, f.Filename)
		}
		return c.JSON(out)
	}
}

func documentID(c *fiber.Ctx) (int64, bool) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
