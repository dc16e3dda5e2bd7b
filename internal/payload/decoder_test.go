package payload

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chrisreddington/gh-formbridge/internal/errors"
)

func TestDecode_JSON(t *testing.T) {
	body := `{
		"fields": {"name": "A", "email": "a@b.com", "age": 42, "subscribed": true, "tags": ["x"], "nothing": null},
		"options": {"redirect": "https://example.com/thanks"}
	}`

	got, err := Decode([]byte(body), "application/json; charset=utf-8")
	require.NoError(t, err)

	assert.Equal(t, map[string]string{
		"name":       "A",
		"email":      "a@b.com",
		"age":        "42",
		"subscribed": "true",
		"tags":       `["x"]`,
	}, got.Fields)
	assert.Equal(t, "https://example.com/thanks", got.Option("redirect"))
}

func TestDecode_JSONWithoutSubObjects(t *testing.T) {
	got, err := Decode([]byte(`{"name":"A"}`), ContentTypeJSON)
	require.NoError(t, err)
	assert.Empty(t, got.Fields)
	assert.Empty(t, got.Options)
	assert.NotNil(t, got.Fields)
	assert.NotNil(t, got.Options)
}

func TestDecode_MalformedJSONFailsOpen(t *testing.T) {
	got, err := Decode([]byte(`{"fields":`), ContentTypeJSON)
	require.Error(t, err)
	assert.True(t, errors.IsLayer(err, errors.LayerDecode))
	assert.Empty(t, got.Fields)
	assert.NotNil(t, got.Fields)
}

func TestDecode_URLEncoded(t *testing.T) {
	body := "fields%5Bname%5D=A&fields[email]=a%40b.com&options[redirect]=https%3A%2F%2Fexample.com&stray=1&fields[name]=ignored"

	got, err := Decode([]byte(body), ContentTypeForm)
	require.NoError(t, err)

	assert.Equal(t, map[string]string{"name": "A", "email": "a@b.com"}, got.Fields)
	assert.Equal(t, map[string]string{"redirect": "https://example.com"}, got.Options)
}

func TestDecode_URLEncodedKeepsWellFormedPairs(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		fields map[string]string
	}{
		{
			name: "unescaped percent",
			body: "fields[name]=A&fields[email]=a@b.com&fields[title]=T&fields[description]=100%&fields[date]=d",
			fields: map[string]string{"name": "A", "email": "a@b.com", "title": "T", "date": "d"},
		},
		{
			name:   "semicolon separator",
			body:   "fields[name]=A;B&fields[email]=a@b.com",
			fields: map[string]string{"email": "a@b.com"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode([]byte(tt.body), ContentTypeForm)
			require.Error(t, err)
			assert.True(t, errors.IsLayer(err, errors.LayerDecode))
			assert.Equal(t, tt.fields, got.Fields)
			assert.NotNil(t, got.Options)
		})
	}
}

func TestDecode_SniffsWhenContentTypeMissing(t *testing.T) {
	tests := []struct {
		name string
		body string
		want map[string]string
	}{
		{name: "json", body: ` {"fields":{"a":"1"}}`, want: map[string]string{"a": "1"}},
		{name: "form", body: "fields[a]=1", want: map[string]string{"a": "1"}},
		{
			name: "multipart",
			body: "--b\r\nContent-Disposition: form-data; name=\"fields[a]\"\r\n\r\n1\r\n--b--\r\n",
			want: map[string]string{"a": "1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode([]byte(tt.body), "")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Fields)
		})
	}
}

func multipartBody(lines ...string) []byte {
	return []byte(strings.Join(lines, "\r\n"))
}

func TestDecode_Multipart(t *testing.T) {
	body := multipartBody(
		"------WebKitFormBoundary7MA4YWxk",
		`Content-Disposition: form-data; name="fields[name]"`,
		"",
		"Ada Lovelace",
		"------WebKitFormBoundary7MA4YWxk",
		`Content-Disposition: form-data; name="fields[email]"`,
		"Content-Type: text/plain",
		"",
		"",
		"ada@example.com",
		"------WebKitFormBoundary7MA4YWxk",
		`Content-Disposition: form-data; name="options[redirect]"`,
		"",
		"https://example.com/thanks",
		"------WebKitFormBoundary7MA4YWxk",
		`Content-Disposition: form-data; name="fields[empty]"`,
		"",
		"",
		"------WebKitFormBoundary7MA4YWxk",
		`Content-Disposition: form-data; name="topLevel"`,
		"",
		"ignored",
		"------WebKitFormBoundary7MA4YWxk--",
		"",
	)

	got, err := Decode(body, "multipart/form-data; boundary=----WebKitFormBoundary7MA4YWxk")
	require.NoError(t, err)

	assert.Equal(t, map[string]string{
		"name":  "Ada Lovelace",
		"email": "ada@example.com",
	}, got.Fields)
	assert.Equal(t, map[string]string{"redirect": "https://example.com/thanks"}, got.Options)
}

func TestDecode_MultipartWithoutBlankSeparator(t *testing.T) {
	body := multipartBody(
		"--xyz",
		`Content-Disposition: form-data; name="fields[title]"`,
		"Hello",
		"--xyz--",
	)

	got, err := Decode(body, ContentTypeMultipart)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"title": "Hello"}, got.Fields)
}

func TestDecode_MultipartKeepsFirstValueLine(t *testing.T) {
	body := multipartBody(
		"--xyz",
		`Content-Disposition: form-data; name="fields[description]"`,
		"",
		"first line",
		"second line",
		"--xyz--",
	)

	got, err := Decode(body, ContentTypeMultipart)
	require.NoError(t, err)
	assert.Equal(t, "first line", got.Fields["description"])
}

func TestDecode_MalformedMultipartIsEmpty(t *testing.T) {
	tests := []struct {
		name string
		body []byte
	}{
		{name: "no boundary line", body: []byte("Content-Disposition: form-data; name=\"fields[a]\"\r\n\r\n1")},
		{name: "bare dashes", body: []byte("--\r\nContent-Disposition: form-data; name=\"fields[a]\"\r\n\r\n1")},
		{name: "empty body", body: nil},
		{name: "part without disposition", body: multipartBody("--b", "Content-Type: text/plain", "", "1", "--b--")},
		{name: "part without name", body: multipartBody("--b", "Content-Disposition: form-data", "", "1", "--b--")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode(tt.body, ContentTypeMultipart)
			require.NoError(t, err)
			assert.Empty(t, got.Fields)
			assert.Empty(t, got.Options)
		})
	}
}

func TestDescribe(t *testing.T) {
	got, err := Decode([]byte(`{"fields":{"a":"1","b":"2"},"options":{"redirect":"x"}}`), ContentTypeJSON)
	require.NoError(t, err)
	assert.Equal(t, "2 field(s), 1 option(s)", Describe(got))
}
