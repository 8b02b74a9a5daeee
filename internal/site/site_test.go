package site

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsValidNewsURL(t *testing.T) {
	s := Default()
	tests := []struct {
		url  string
		want bool
	}{
		{"https://www.df.cl/noticias/empresas/nota", true},
		{"https://www.df.cl/economia/ipc-sube", true},
		{"https://www.df.cl/mercados/bolsa", true},
		{"https://www.df.cl/dflab/startups/nota", true},
		{"https://www.df.cl/columnistas/juan/nota", true},
		{"https://www.df.cl/", false},
		{"https://www.df.cl/deportes/nota", false},
		{"https://example.com/economia/nota", false},
		{"", false},
		{"https://www.df.cl/login/economia/", false},
		{"https://www.df.cl/suscripcion/noticias/", false},
		{"https://www.df.cl/p/economia/nota", false},
		{"https://twitter.com/share?url=https://www.df.cl/economia/nota", false},
		{"https://www.df.cl/noticias/pdf/edicion", false},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.want, s.IsValidNewsURL(tt.url))
		})
	}
}

func TestDenyBeforeAllow(t *testing.T) {
	s := Default()
	u := "https://www.df.cl/login/economia/"
	assert.False(t, s.IsValidNewsURL(u))
}

func TestCustomMarker(t *testing.T) {
	s := New("http://127.0.0.1:8080", "Test", "127.0.0.1")
	assert.True(t, s.IsValidNewsURL("http://127.0.0.1:8080/noticias/a"))
	assert.False(t, s.IsValidNewsURL("https://www.df.cl/noticias/a"))
}

func TestResolve(t *testing.T) {
	s := Default()
	assert.Equal(t, "https://www.df.cl/noticias/a", s.Resolve("/noticias/a"))
	assert.Equal(t, "https://cdn.df.cl/img.jpg", s.Resolve("https://cdn.df.cl/img.jpg"))
	assert.Equal(t, "https://cdn.df.cl/img.jpg", s.Resolve("//cdn.df.cl/img.jpg"))
	assert.Equal(t, "https://www.df.cl/img.jpg", s.Resolve("img.jpg"))
	assert.Equal(t, "", s.Resolve("  "))
}

func TestNewDefaults(t *testing.T) {
	s := New("", "", "")
	assert.Equal(t, DefaultBaseURL, s.BaseURL)
	assert.Equal(t, DefaultProvider, s.Provider)
	assert.Equal(t, DefaultMarker, s.Marker)

	s = New("https://www.df.cl/", "", "")
	assert.Equal(t, "https://www.df.cl", s.BaseURL)
}
