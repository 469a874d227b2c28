package profile

import "testing"

func TestMatch_RootKey(t *testing.T) {
	p := &Profile{Name: "mail", Type: TypeSync, Keys: map[string]string{"account": "work"}}

	if !Match(p, []Criterion{{Type: Equal, Key: "account", Value: "work"}}) {
		t.Fatal("expected EQUAL match against root profile")
	}
	if Match(p, []Criterion{{Type: Equal, Key: "account", Value: "personal"}}) {
		t.Fatal("expected EQUAL mismatch to fail")
	}
	if !Match(p, []Criterion{{Type: NotEqual, Key: "account", Value: "personal"}}) {
		t.Fatal("expected NOT_EQUAL to succeed when values differ")
	}
	if !Match(p, []Criterion{{Type: Exists, Key: "account"}}) {
		t.Fatal("expected EXISTS to succeed for a present key")
	}
	if Match(p, []Criterion{{Type: NotExists, Key: "account"}}) {
		t.Fatal("expected NOT_EXISTS to fail for a present key")
	}
}

func TestMatch_MissingKeyIsExistsFalseAndNotEqualTrue(t *testing.T) {
	p := &Profile{Name: "mail", Type: TypeSync, Keys: map[string]string{}}

	if Match(p, []Criterion{{Type: Exists, Key: "account"}}) {
		t.Fatal("expected EXISTS to fail for a missing key")
	}
	if !Match(p, []Criterion{{Type: NotExists, Key: "account"}}) {
		t.Fatal("expected NOT_EXISTS to succeed for a missing key")
	}
	if !Match(p, []Criterion{{Type: NotEqual, Key: "account", Value: "anything"}}) {
		t.Fatal("expected NOT_EQUAL to succeed for a missing key")
	}
	if Match(p, []Criterion{{Type: Equal, Key: "account", Value: "anything"}}) {
		t.Fatal("expected EQUAL to fail for a missing key")
	}
}

func TestMatch_NamedSubProfile(t *testing.T) {
	p := &Profile{Name: "mail", Type: TypeSync}
	p.SubProfiles = []*Profile{
		{Name: "imap", Type: "transport", Keys: map[string]string{"port": "993"}},
	}

	if !Match(p, []Criterion{{SubName: "imap", SubType: "transport", Type: Equal, Key: "port", Value: "993"}}) {
		t.Fatal("expected named sub-profile match to succeed")
	}
	if Match(p, []Criterion{{SubName: "imap", SubType: "transport", Type: Equal, Key: "port", Value: "25"}}) {
		t.Fatal("expected named sub-profile mismatch to fail")
	}
	if Match(p, []Criterion{{SubName: "smtp", SubType: "transport", Type: Exists, Key: "port"}}) {
		t.Fatal("expected absent named sub-profile to fail all but NOT_EXISTS")
	}
	if !Match(p, []Criterion{{SubName: "smtp", SubType: "transport", Type: NotExists, Key: "port"}}) {
		t.Fatal("expected absent named sub-profile to satisfy NOT_EXISTS")
	}
}

func TestMatch_SubProfilesOfType(t *testing.T) {
	p := &Profile{Name: "mail", Type: TypeSync}
	p.SubProfiles = []*Profile{
		{Name: "imap", Type: "transport", Keys: map[string]string{"secure": "true"}},
		{Name: "pop3", Type: "transport", Keys: map[string]string{"secure": "false"}},
	}

	if !Match(p, []Criterion{{SubType: "transport", Type: Equal, Key: "secure", Value: "true"}}) {
		t.Fatal("expected at-least-one-matches semantics across same-type sub-profiles")
	}
	if Match(p, []Criterion{{SubType: "transport", Type: Equal, Key: "secure", Value: "maybe"}}) {
		t.Fatal("expected no sub-profile of type to match")
	}

	empty := &Profile{Name: "contacts", Type: TypeSync}
	if !Match(empty, []Criterion{{SubType: "transport", Type: NotExists, Key: "secure"}}) {
		t.Fatal("expected NOT_EXISTS to succeed when no sub-profiles of the type exist")
	}
}

func TestMatch_Conjunction(t *testing.T) {
	p := &Profile{Name: "mail", Type: TypeSync, Keys: map[string]string{"account": "work", "enabled": "true"}}

	criteria := []Criterion{
		{Type: Equal, Key: "account", Value: "work"},
		{Type: Equal, Key: "enabled", Value: "true"},
	}
	if !Match(p, criteria) {
		t.Fatal("expected conjunction of satisfied criteria to succeed")
	}

	criteria = append(criteria, Criterion{Type: Equal, Key: "account", Value: "personal"})
	if Match(p, criteria) {
		t.Fatal("expected conjunction to fail when any criterion fails")
	}
}
