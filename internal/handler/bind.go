package handler

import (
	"context"
	"encoding/json"
	"mime/multipart"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/iliyamo/account-service/internal/model"
)

// requestTimeout bounds the store work of a single request.
const requestTimeout = 5 * time.Second

// payloadField carries the JSON document of a multipart request.
const payloadField = "payload"

// Validator adapts the shared struct validator to echo.
type Validator struct{}

func (Validator) Validate(i interface{}) error {
	if fields := model.Validate(i); len(fields) > 0 {
		return &model.ValidationError{Fields: fields}
	}
	return nil
}

// Configure installs the validator and the envelope error handler on e.
func Configure(e *echo.Echo) {
	e.Validator = Validator{}
	e.HTTPErrorHandler = ErrorHandler
}

// bind decodes the body (and path params) into req and validates it.
func bind(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return badRequest("invalid body")
	}
	return c.Validate(req)
}

// bindWithFiles accepts either a JSON body or a multipart form whose
// payload field holds the JSON document.  File parts named after account
// document fields are returned by field name.
func bindWithFiles(c echo.Context, req any) (map[string]*multipart.FileHeader, error) {
	ct := c.Request().Header.Get(echo.HeaderContentType)
	if !strings.HasPrefix(ct, echo.MIMEMultipartForm) {
		return nil, bind(c, req)
	}

	form, err := c.MultipartForm()
	if err != nil {
		return nil, badRequest("invalid multipart body")
	}
	if vals := form.Value[payloadField]; len(vals) > 0 && strings.TrimSpace(vals[0]) != "" {
		if err := json.Unmarshal([]byte(vals[0]), req); err != nil {
			return nil, badRequest("invalid payload")
		}
	}
	if err := c.Validate(req); err != nil {
		return nil, err
	}

	files := map[string]*multipart.FileHeader{}
	for _, field := range model.DocumentFields {
		if fhs := form.File[field]; len(fhs) > 0 {
			files[field] = fhs[0]
		}
	}
	return files, nil
}

func requestContext(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), requestTimeout)
}

// pathID parses an ObjectID path parameter.
func pathID(c echo.Context, name, msg string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(c.Param(name))
	if err != nil {
		return primitive.NilObjectID, badRequest(msg)
	}
	return id, nil
}

// oid converts an already validated hex id; "" yields nil.
func oid(s string) *primitive.ObjectID {
	if s == "" {
		return nil
	}
	id, err := primitive.ObjectIDFromHex(s)
	if err != nil {
		return nil
	}
	return &id
}

func oidPtr(s *string) *primitive.ObjectID {
	if s == nil {
		return nil
	}
	return oid(*s)
}

func oids(in []string) []primitive.ObjectID {
	if len(in) == 0 {
		return nil
	}
	out := make([]primitive.ObjectID, 0, len(in))
	for _, s := range in {
		if id := oid(s); id != nil {
			out = append(out, *id)
		}
	}
	return out
}
