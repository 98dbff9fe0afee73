package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeMySQLDSN(t *testing.T) {
	tests := []struct {
		name, in, user, pass, want string
	}{
		{"native dsn untouched", "u:p@tcp(db:3306)/forms?parseTime=true", "", "", "u:p@tcp(db:3306)/forms?parseTime=true"},
		{"url form", "mysql://u:p@db:3306/forms", "", "", "u:p@tcp(db:3306)/forms?charset=utf8mb4&parseTime=true"},
		{"jdbc with override", "jdbc:mysql://db:3306/forms?useSSL=false", "root", "pw", "root:pw@tcp(db:3306)/forms?charset=utf8mb4&parseTime=true&tls=false"},
		{"empty", "  ", "", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, normalizeMySQLDSN(tt.in, tt.user, tt.pass))
		})
	}
}

func TestNewGorm_UnsupportedDriver(t *testing.T) {
	_, err := NewGorm(Opts{Driver: "oracle"})
	assert.ErrorIs(t, err, ErrUnsupportedDriver)
}

func TestMaskDSN(t *testing.T) {
	assert.Equal(t, "root:****@tcp(db:3306)/forms", maskDSN("root:pw@tcp(db:3306)/forms"))
	assert.Equal(t, "root@tcp(db:3306)/forms", maskDSN("root@tcp(db:3306)/forms"))
	assert.Equal(t, "/forms", maskDSN("/forms"))
}
