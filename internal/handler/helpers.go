package handler

import (
	"errors"
	"net/http"
	"reflect"
	"strings"

	"mypostelma/internal/apierror"
	"mypostelma/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var validate = validator.New()

func init() {
	// decimal.Decimal is a struct; expose it as a float so numeric tags
	// do not panic with "Bad field type decimal.Decimal".
	validate.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if v, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := v.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})

	// Report fields by their wire name.
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		for _, tag := range []string{"json", "form"} {
			name := strings.SplitN(f.Tag.Get(tag), ",", 2)[0]
			if name != "" && name != "-" {
				return name
			}
		}
		return f.Name
	})
}

// bindAndValidate binds the JSON body and runs the validator tags.
// On failure it writes the response and returns false.
func bindAndValidate(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, apierror.WithCode(apierror.CodeValidation, "JSON invalide: "+err.Error()))
		return false
	}
	return runValidation(c, req)
}

// bindQuery is bindAndValidate for query-string parameters.
func bindQuery(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindQuery(req); err != nil {
		c.JSON(http.StatusBadRequest, apierror.WithCode(apierror.CodeValidation, "Paramètres invalides: "+err.Error()))
		return false
	}
	return runValidation(c, req)
}

func runValidation(c *gin.Context, req interface{}) bool {
	err := validate.Struct(req)
	if err == nil {
		return true
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		c.Error(err)
		return false
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = fe.Tag()
	}
	c.JSON(http.StatusUnprocessableEntity, apierror.NewValidation(fields))
	return false
}

// pathID parses a UUID path parameter, answering 400 when malformed.
func pathID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.WithCode(apierror.CodeValidation, "Identifiant invalide"))
		return uuid.Nil, false
	}
	return id, true
}

// respondError maps service error kinds to HTTP statuses. Anything
// unclassified goes to the ErrorHandler middleware as a 500.
func respondError(c *gin.Context, err error) {
	var derr *service.Error
	msg := err.Error()
	if errors.As(err, &derr) {
		msg = derr.Msg
	}

	switch {
	case errors.Is(err, service.ErrValidation):
		body := apierror.WithCode(apierror.CodeValidation, msg)
		if derr != nil && derr.Field != "" {
			body.Fields = map[string]string{derr.Field: msg}
		}
		c.JSON(http.StatusBadRequest, body)
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, apierror.WithCode(apierror.CodeNotFound, msg))
	case errors.Is(err, service.ErrConflict):
		c.JSON(http.StatusConflict, apierror.WithCode(apierror.CodeConflict, msg))
	case errors.Is(err, service.ErrInvalidState):
		c.JSON(http.StatusConflict, apierror.WithCode(apierror.CodeInvalidState, msg))
	case errors.Is(err, service.ErrStorageUnavailable):
		c.Header("Retry-After", "30")
		c.JSON(http.StatusServiceUnavailable, apierror.WithCode(apierror.CodeStorageUnavailable, msg))
	default:
		c.Error(err)
	}
}
