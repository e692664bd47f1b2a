package snapshot

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/TimurManjosov/gopaywall/internal/rules"
)

func sampleTriggers() map[string]rules.Trigger {
	return map[string]rules.Trigger{
		"open": {
			EventName: "open",
			Rules: []rules.TriggerRule{
				{
					ExperimentID: "e1",
					GroupID:      "g1",
					VariantOptions: []rules.VariantOption{
						{ID: "v1", Kind: rules.VariantHoldout, Weight: 20},
						{ID: "v2", Kind: rules.VariantTreatment, PaywallID: "p1", Weight: 80},
					},
				},
			},
		},
	}
}

func TestBuildETagDeterministic(t *testing.T) {
	a := Build(sampleTriggers(), map[string]PaywallDef{"p1": {ID: "p1"}})
	b := Build(sampleTriggers(), map[string]PaywallDef{"p1": {ID: "p1"}})
	if a.ETag == "" {
		t.Fatal("expected non-empty etag")
	}
	if a.ETag != b.ETag {
		t.Errorf("identical campaigns must share an etag: %q vs %q", a.ETag, b.ETag)
	}

	c := Build(nil, nil)
	if c.ETag == a.ETag {
		t.Error("different campaigns must not share an etag")
	}
}

func TestProviderStartsEmpty(t *testing.T) {
	p := NewProvider()
	s := p.Current()
	if s == nil {
		t.Fatal("Current returned nil")
	}
	if len(s.Triggers) != 0 || len(s.Paywalls) != 0 {
		t.Errorf("expected empty initial snapshot, got %+v", s)
	}
	if p.CurrentTriggers() == nil {
		t.Error("CurrentTriggers must not return nil")
	}
}

func TestProviderUpdateSwapsSnapshot(t *testing.T) {
	p := NewProvider()
	next := Build(sampleTriggers(), map[string]PaywallDef{"p1": {ID: "p1", URL: "https://x/p1"}})
	p.Update(next)

	if got := p.Current(); got != next {
		t.Error("Current must return the swapped snapshot")
	}
	if _, ok := p.CurrentTriggers()["open"]; !ok {
		t.Error("trigger missing after update")
	}
}

func TestSubscribeReceivesETag(t *testing.T) {
	p := NewProvider()
	updates, unsub := p.Subscribe()
	defer unsub()

	next := Build(sampleTriggers(), map[string]PaywallDef{"p1": {ID: "p1"}})
	p.Update(next)

	select {
	case etag := <-updates:
		if etag != next.ETag {
			t.Errorf("expected etag %q, got %q", next.ETag, etag)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for update")
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	p := NewProvider()
	updates, unsub := p.Subscribe()
	unsub()

	if _, open := <-updates; open {
		t.Error("expected channel to be closed after unsubscribe")
	}
	// A second unsubscribe is a no-op.
	unsub()

	// Publishing after unsubscribe must not panic.
	p.Update(Build(nil, nil))
}

func TestMultipleSubscribers(t *testing.T) {
	p := NewProvider()
	var chans []<-chan string
	for i := 0; i < 5; i++ {
		ch, unsub := p.Subscribe()
		defer unsub()
		chans = append(chans, ch)
	}

	next := Build(sampleTriggers(), map[string]PaywallDef{"p1": {ID: "p1"}})
	p.Update(next)

	for i, ch := range chans {
		select {
		case etag := <-ch:
			if etag != next.ETag {
				t.Errorf("subscriber %d: wrong etag %q", i, etag)
			}
		case <-time.After(time.Second):
			t.Fatalf("subscriber %d never notified", i)
		}
	}
}

func TestSlowSubscriberDoesNotBlockPublish(t *testing.T) {
	p := NewProvider()
	_, unsub := p.Subscribe()
	defer unsub()

	// Buffer size is one; further updates are dropped, not blocking.
	for i := 0; i < 10; i++ {
		p.Update(Build(nil, map[string]PaywallDef{"p": {ID: "p", URL: string(rune('a' + i))}}))
	}
}

const validCampaign = `
triggers:
  - event: open
    rules:
      - experimentId: e1
        groupId: g1
        variants:
          - id: v1
            kind: HOLDOUT
            weight: 20
          - id: v2
            kind: TREATMENT
            paywallId: p1
            weight: 80
paywalls:
  - id: p1
    url: https://paywalls.example.com/p1
    products:
      - com.example.pro.monthly
`

func TestParseValidCampaign(t *testing.T) {
	s, err := Parse([]byte(validCampaign))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	trig, ok := s.Triggers["open"]
	if !ok {
		t.Fatal("trigger 'open' missing")
	}
	if len(trig.Rules) != 1 || len(trig.Rules[0].VariantOptions) != 2 {
		t.Errorf("unexpected trigger shape: %+v", trig)
	}
	pw, ok := s.Paywalls["p1"]
	if !ok || pw.URL != "https://paywalls.example.com/p1" {
		t.Errorf("unexpected paywall: %+v", pw)
	}
	if len(pw.Products) != 1 {
		t.Errorf("expected one product, got %v", pw.Products)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "campaign.yaml")
	if err := os.WriteFile(path, []byte(validCampaign), 0o600); err != nil {
		t.Fatal(err)
	}
	s, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if _, ok := s.Triggers["open"]; !ok {
		t.Error("trigger 'open' missing")
	}

	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestParseRejectsBrokenCampaigns(t *testing.T) {
	cases := []struct {
		name string
		yaml string
	}{
		{"not yaml", `{{{`},
		{"trigger without event", "triggers:\n  - rules: []\n"},
		{"duplicate trigger", "triggers:\n  - event: open\n    rules: []\n  - event: open\n    rules: []\n"},
		{"duplicate paywall", "paywalls:\n  - id: p1\n  - id: p1\n"},
		{
			"treatment references unknown paywall",
			"triggers:\n  - event: open\n    rules:\n      - experimentId: e1\n        groupId: g1\n        variants:\n          - id: v1\n            kind: TREATMENT\n            paywallId: nope\n            weight: 1\n",
		},
		{
			"empty variants",
			"triggers:\n  - event: open\n    rules:\n      - experimentId: e1\n        groupId: g1\n        variants: []\n",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Parse([]byte(tc.yaml)); err == nil {
				t.Error("expected parse to fail")
			}
		})
	}
}
