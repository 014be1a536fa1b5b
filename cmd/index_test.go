package cmd

import "testing"

func TestSeedHostnames(t *testing.T) {
	hosts, err := seedHostnames([]string{
		"https://www.alz.org/help-support",
		"https://www.alz.org/care",
		"https://forum.alzconnected.org/topic/1",
	})
	if err != nil {
		t.Fatalf("seedHostnames: %v", err)
	}
	want := []string{"www.alz.org", "forum.alzconnected.org"}
	if len(hosts) != len(want) {
		t.Fatalf("hosts = %v, want %v", hosts, want)
	}
	for i := range want {
		if hosts[i] != want[i] {
			t.Errorf("hosts[%d] = %q, want %q", i, hosts[i], want[i])
		}
	}
}

func TestSeedHostnamesRejectsInvalid(t *testing.T) {
	if _, err := seedHostnames([]string{"not a url"}); err == nil {
		t.Fatal("expected error for seed without hostname")
	}
}
