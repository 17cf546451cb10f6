package repository

import "testing"

func TestValidID(t *testing.T) {
	tests := map[string]bool{
		"6f1c2a9e-8d0b-4b8e-9a55-0c3a1f0e7d21": true,
		"not-a-uuid":                           false,
		"":                                     false,
	}
	for id, want := range tests {
		if got := validID(id); got != want {
			t.Errorf("validID(%q) = %v, want %v", id, got, want)
		}
	}
}
