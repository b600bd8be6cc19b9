package user

import "testing"

func TestUserHasContact(t *testing.T) {
	tests := []struct {
		name string
		user User
		want bool
	}{
		{"email only", User{ID: "u1", Email: "fan@example.com"}, true},
		{"phone only", User{ID: "u1", Phone: "+15550100"}, true},
		{"both", User{ID: "u1", Email: "fan@example.com", Phone: "+15550100"}, true},
		{"neither", User{ID: "u1"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.user.HasContact(); got != tt.want {
				t.Errorf("HasContact() = %v, want %v", got, tt.want)
			}
		})
	}
}
