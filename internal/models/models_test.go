package models

import "testing"

func TestCanCompose(t *testing.T) {
	cases := []struct {
		name    string
		isAdmin bool
		isOpen  bool
		want    bool
	}{
		{"UserOpenTicket", false, true, true},
		{"UserClosedTicket", false, false, false},
		{"AdminOpenTicket", true, true, true},
		{"AdminClosedTicket", true, false, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := CanCompose(tc.isAdmin, tc.isOpen); got != tc.want {
				t.Errorf("CanCompose(%t, %t) = %t, want %t", tc.isAdmin, tc.isOpen, got, tc.want)
			}
		})
	}
}

func TestIdentityIsAdmin(t *testing.T) {
	if (Identity{IsStaff: true}).IsAdmin() != true {
		t.Error("staff must be admin")
	}
	if (Identity{IsSuperuser: true}).IsAdmin() != true {
		t.Error("superuser must be admin")
	}
	if (Identity{}).IsAdmin() {
		t.Error("plain user must not be admin")
	}
}

func TestSessionAuthenticated(t *testing.T) {
	if (Session{}).Authenticated() {
		t.Error("empty session must not be authenticated")
	}
	if !(Session{Token: "t"}).Authenticated() {
		t.Error("session with token must be authenticated")
	}
}
