package validator

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testStruct struct {
	Name  string `validate:"required"`
	Email string `validate:"required,email"`
	Qty   int    `validate:"gte=1,lte=100"`
}

func TestValidate_Success(t *testing.T) {
	s := testStruct{Name: "Double Cheeseburger", Email: "ana@example.com", Qty: 2}
	assert.NoError(t, Validate(s))
}

func TestValidate_MissingRequired(t *testing.T) {
	err := Validate(testStruct{Email: "ana@example.com", Qty: 1})
	require.Error(t, err)

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Equal(t, "is required", valErr.Fields()["Name"])
}

func TestValidate_InvalidEmail(t *testing.T) {
	err := Validate(testStruct{Name: "x", Email: "not-an-email", Qty: 1})
	require.Error(t, err)

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Equal(t, "must be a valid email address", valErr.Fields()["Email"])
}

func TestValidate_OutOfRange(t *testing.T) {
	err := Validate(testStruct{Name: "x", Email: "a@b.co", Qty: 500})
	require.Error(t, err)

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Contains(t, valErr.Fields()["Qty"], "100")
}

func TestValidate_MultipleErrorsListed(t *testing.T) {
	err := Validate(testStruct{})
	require.Error(t, err)

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	fields := valErr.Fields()
	assert.Contains(t, fields, "Name")
	assert.Contains(t, fields, "Email")
	assert.Contains(t, err.Error(), "field 'Name'")
}

type modeStruct struct {
	Mode string `validate:"oneof=delivery pickup"`
}

func TestValidate_OneOf(t *testing.T) {
	err := Validate(modeStruct{Mode: "drone"})
	require.Error(t, err)

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Contains(t, valErr.Fields()["Mode"], "one of")

	assert.NoError(t, Validate(modeStruct{Mode: "pickup"}))
}

func TestDecodeAndValidate_Success(t *testing.T) {
	body := `{"Name":"Fries","Email":"ana@example.com","Qty":3}`
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(body))

	var s testStruct
	require.NoError(t, DecodeAndValidate(req, &s))
	assert.Equal(t, "Fries", s.Name)
	assert.Equal(t, 3, s.Qty)
}

func TestDecodeAndValidate_InvalidJSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{invalid"))

	var s testStruct
	err := DecodeAndValidate(req, &s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode request body")
}

func TestDecodeAndValidate_ValidationFails(t *testing.T) {
	body := `{"Name":"","Email":"bad","Qty":1}`
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(body))

	var s testStruct
	err := DecodeAndValidate(req, &s)
	require.Error(t, err)

	var valErr *ValidationError
	assert.ErrorAs(t, err, &valErr)
}
