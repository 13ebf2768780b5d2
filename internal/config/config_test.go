package config

import "testing"

func TestRulesConfigDefaultsAndLoad(t *testing.T) {
	defaults := GetRulesConfig()
	if !defaults.PermissivePlay {
		t.Fatal("default permissive_play should be true")
	}
	if defaults.WinOnEmptyHand {
		t.Fatal("default win_on_empty_hand should be false")
	}
	if defaults.HandSize != 7 {
		t.Fatalf("default hand_size = %d, want 7", defaults.HandSize)
	}

	if err := LoadRulesConfig("testdata/rules_config.json"); err != nil {
		t.Fatalf("load error: %v", err)
	}

	loaded := GetRulesConfig()
	if loaded.PermissivePlay {
		t.Fatal("permissive_play override not applied")
	}
	if !loaded.WinOnEmptyHand {
		t.Fatal("win_on_empty_hand override not applied")
	}
	if loaded.HandSize != 5 {
		t.Fatalf("hand_size = %d, want 5", loaded.HandSize)
	}
	// Fields absent from the file keep their defaults.
	if loaded.BotMinDelaySeconds != 1 || loaded.BotMaxDelaySeconds != 3 {
		t.Fatalf("bot delays = %d/%d, want defaults 1/3", loaded.BotMinDelaySeconds, loaded.BotMaxDelaySeconds)
	}
}
