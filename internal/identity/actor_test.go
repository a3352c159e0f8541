package identity

import "testing"

func TestCanManageAppointment(t *testing.T) {
	cases := []struct {
		name  string
		actor Actor
		want  bool
	}{
		{"owner of same business", Actor{ID: "p9", BusinessID: "b1", Role: RoleOwner}, true},
		{"receptionist of same business", Actor{ID: "p9", BusinessID: "b1", Role: RoleReceptionist}, true},
		{"assigned professional", Actor{ID: "p1", BusinessID: "b1", Role: RoleStaff}, true},
		{"other staff member", Actor{ID: "p2", BusinessID: "b1", Role: RoleStaff}, false},
		{"owner of another business", Actor{ID: "p9", BusinessID: "b2", Role: RoleOwner}, false},
		{"unknown role", Actor{ID: "p1", BusinessID: "b1", Role: "client"}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.actor.CanManageAppointment("b1", "p1"); got != tc.want {
				t.Fatalf("got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestCanConfigureBusiness(t *testing.T) {
	if !(Actor{ID: "p1", BusinessID: "b1", Role: RoleOwner}).CanConfigureBusiness() {
		t.Error("owner must configure the business")
	}
	if !(Actor{ID: "p1", BusinessID: "b1", Role: RoleReceptionist}).CanConfigureBusiness() {
		t.Error("receptionist must configure the business")
	}
	if (Actor{ID: "p1", BusinessID: "b1", Role: RoleStaff}).CanConfigureBusiness() {
		t.Error("staff must not configure the business")
	}
	if (Actor{ID: "p1", BusinessID: "b1", Role: "client"}).CanConfigureBusiness() {
		t.Error("unknown role must be rejected")
	}
}
