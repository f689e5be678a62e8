package slug

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMake(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Classic Tee", "classic-tee"},
		{"  Leading and trailing  ", "leading-and-trailing"},
		{"Crème Brûlée!", "crme-brle"},
		{"a -- b", "a-b"},
		{"Multi\tspace\n name", "multi-space-name"},
		{"100% Cotton, Organic", "100-cotton-organic"},
		{"", ""},
		{"---", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Make(tt.in))
		})
	}
}
