package binder

import (
	"encoding/json"
	"net/http"
	"net/url"
	"reflect"
	"regexp"
	"strings"

	"github.com/creasty/defaults"
	"github.com/go-playground/mold/v4"
	"github.com/go-playground/mold/v4/modifiers"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/schema"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/echo/v4/middleware/logger"
	"github.com/shishobooks/locallibrary/pkg/errcodes"
)

var unknownFieldsRE = regexp.MustCompile(`^json: unknown field "(.*)"$`)

// Binder implements echo.Binder. Payloads are decoded from JSON, HTML forms
// or the query string, trimmed with mold, defaulted and then validated.
//
// Two context keys relax the checks for a single route:
// "disallow_empty_body" and "disallow_unknown_fields", both true by default.
type Binder struct {
	queryDecoder *schema.Decoder
	formDecoder  *schema.Decoder
	conform      *mold.Transformer
	validate     *validator.Validate
}

func New() (*Binder, error) {
	queryDecoder := schema.NewDecoder()
	queryDecoder.SetAliasTag("query")

	formDecoder := schema.NewDecoder()
	formDecoder.SetAliasTag("form")
	// HTML forms post their submit buttons along with the fields.
	formDecoder.IgnoreUnknownKeys(true)

	validate := validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	for tag, fn := range map[string]validator.Func{
		date:       dateValidator,
		isbn:       isbnValidator,
		loanStatus: loanStatusValidator,
	} {
		if err := validate.RegisterValidation(tag, fn); err != nil {
			return nil, errors.WithStack(err)
		}
	}

	return &Binder{
		queryDecoder: queryDecoder,
		formDecoder:  formDecoder,
		conform:      modifiers.New(),
		validate:     validate,
	}, nil
}

func flag(c echo.Context, key string) bool {
	if v, ok := c.Get(key).(bool); ok {
		return v
	}
	return true
}

func (b *Binder) Bind(i interface{}, c echo.Context) error {
	req := c.Request()

	switch {
	case req.ContentLength > 0:
		if err := b.decodeBody(i, c); err != nil {
			return err
		}
	case req.Method == http.MethodGet || req.Method == http.MethodDelete:
		if err := decodeValues(b.queryDecoder, i, c.QueryParams()); err != nil {
			return err
		}
	case flag(c, "disallow_empty_body"):
		return errcodes.EmptyRequestBody()
	}

	if err := b.conform.Struct(req.Context(), i); err != nil {
		return errors.WithStack(err)
	}

	if err := defaults.Set(i); err != nil {
		return errors.WithStack(err)
	}

	if err := b.validate.Struct(i); err != nil {
		var errs validator.ValidationErrors
		if !errors.As(err, &errs) || len(errs) == 0 {
			return errors.WithStack(err)
		}
		return errcodes.FieldValidationError(errs[0].Field(), formatValidationError(errs[0]))
	}
	return nil
}

func (b *Binder) decodeBody(i interface{}, c echo.Context) error {
	req := c.Request()
	ctype := req.Header.Get(echo.HeaderContentType)

	switch {
	case strings.HasPrefix(ctype, echo.MIMEApplicationJSON):
		defer req.Body.Close()
		dec := json.NewDecoder(req.Body)
		if flag(c, "disallow_unknown_fields") {
			dec.DisallowUnknownFields()
		}
		if err := dec.Decode(i); err != nil {
			if matches := unknownFieldsRE.FindStringSubmatch(err.Error()); len(matches) > 1 {
				return errcodes.UnknownParameter(matches[1])
			}
			var typeErr *json.UnmarshalTypeError
			if errors.As(err, &typeErr) {
				return errcodes.ValidationTypeError(formatUnmarshalTypeError(typeErr))
			}
			logger.FromEchoContext(c).Err(err).Error("unknown json decode error")
			return errcodes.MalformedPayload()
		}
		return nil
	case strings.HasPrefix(ctype, echo.MIMEApplicationForm):
		params, err := c.FormParams()
		if err != nil {
			return errcodes.MalformedPayload()
		}
		return decodeValues(b.formDecoder, i, params)
	default:
		return errcodes.UnsupportedMediaType()
	}
}

// decodeValues reports the first schema error the way JSON errors are
// reported.
func decodeValues(decoder *schema.Decoder, i interface{}, values url.Values) error {
	err := decoder.Decode(i, values)
	if err == nil {
		return nil
	}

	multi, ok := err.(schema.MultiError)
	if !ok {
		return errors.WithStack(err)
	}
	for _, e := range multi {
		switch e := e.(type) {
		case schema.ConversionError:
			return errcodes.ValidationTypeError(formatSchemaConversionError(e))
		case schema.UnknownKeyError:
			return errcodes.UnknownParameter(e.Key)
		default:
			return errors.WithStack(e)
		}
	}
	return nil
}
