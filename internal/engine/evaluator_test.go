package engine

import "testing"

func strPtr(s string) *string { return &s }

func testContext() Context {
	return Context{
		Params: map[string]any{"source": "launch", "count": 3, "priority": "high"},
		User:   map[string]any{"plan": "free", "age": 27.0, "beta": true},
		Device: map[string]any{"platform": "ios", "osVersion": "16.4.1"},
	}
}

func TestEvaluate_NilExpressionMatches(t *testing.T) {
	if !Evaluate(nil, testContext()) {
		t.Fatal("nil expression should match everything")
	}
}

func TestEvaluate_BlankExpressionMatches(t *testing.T) {
	if !Evaluate(strPtr("   "), testContext()) {
		t.Fatal("blank expression should match everything")
	}
}

func TestEvaluate_Grammar(t *testing.T) {
	tests := []struct {
		name string
		expr string
		want bool
	}{
		{"string equality match", `params.source == "launch"`, true},
		{"string equality mismatch", `params.a == "b"`, false},
		{"string inequality", `params.source != "settings"`, true},
		{"numeric equality", `params.count == 3`, true},
		{"numeric comparison", `user.age >= 18`, true},
		{"numeric comparison false", `user.age < 18`, false},
		{"bool literal", `user.beta == true`, true},
		{"and both true", `params.source == "launch" && user.plan == "free"`, true},
		{"and one false", `params.source == "launch" && user.plan == "pro"`, false},
		{"or short circuits", `user.plan == "pro" || device.platform == "ios"`, true},
		{"parentheses", `(user.plan == "pro" || user.beta == true) && params.count > 1`, true},
		{"semver comparison", `device.osVersion >= "16.0"`, true},
		{"semver comparison false", `device.osVersion > "17.0"`, false},
		{"unknown namespace", `session.id == "x"`, false},
		{"unknown field", `params.missing == "x"`, false},
		{"type mismatch", `params.count == "three"`, false},
		{"ordered type mismatch", `params.priority > 2`, false},
		{"malformed expression", `params.source ==`, false},
		{"garbage", `@@@`, false},
		{"single ampersand", `params.count == 3 & user.beta == true`, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Evaluate(strPtr(tc.expr), testContext()); got != tc.want {
				t.Errorf("Evaluate(%q) = %v, want %v", tc.expr, got, tc.want)
			}
		})
	}
}

func TestEvaluate_SingleQuotedStrings(t *testing.T) {
	if !Evaluate(strPtr(`params.source == 'launch'`), testContext()) {
		t.Fatal("single-quoted literal should match")
	}
}

func TestEvaluate_JSONLogic(t *testing.T) {
	tests := []struct {
		name string
		expr string
		want bool
	}{
		{"var equality", `{"==": [{"var": "params.source"}, "launch"]}`, true},
		{"var mismatch", `{"==": [{"var": "params.source"}, "settings"]}`, false},
		{"nested and", `{"and": [{"==": [{"var": "user.plan"}, "free"]}, {">": [{"var": "user.age"}, 21]}]}`, true},
		{"missing var", `{"==": [{"var": "params.nope"}, "x"]}`, false},
		{"invalid json", `{"==": [`, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Evaluate(strPtr(tc.expr), testContext()); got != tc.want {
				t.Errorf("Evaluate(%q) = %v, want %v", tc.expr, got, tc.want)
			}
		})
	}
}

func TestEvaluate_NilMaps(t *testing.T) {
	// Evaluation against an empty context must not panic and must not match.
	if Evaluate(strPtr(`params.a == "b"`), Context{}) {
		t.Fatal("expected no match against empty context")
	}
}
