package harness

import "testing"

func TestExtractGeneratedTests(t *testing.T) {
	src := `#[kani::proof]
fn insert_test() {
    let x: u32 = kani::any();
    assert!(x >= 0);
}

#[test]
fn kani_concrete_playback_insert_test_7155943916565760311() {
    let concrete_vals: Vec<Vec<u8>> = vec![vec![0, 0, 0, 0]];
    kani::concrete_playback_run(concrete_vals, insert_test);
}

#[test]
fn kani_concrete_playback_insert_test_1234567890123456789() {
    let concrete_vals: Vec<Vec<u8>> = vec![vec![255, 255, 255, 255]];
    kani::concrete_playback_run(concrete_vals, insert_test);
}
`
	tests, err := ExtractGeneratedTests([]byte(src))
	if err != nil {
		t.Fatalf("ExtractGeneratedTests: %v", err)
	}

	if len(tests) != 2 {
		t.Fatalf("got %d generated tests, want 2", len(tests))
	}
	for _, gt := range tests {
		if gt.Harness != "insert_test" {
			t.Errorf("test %s harness = %q, want insert_test", gt.Name, gt.Harness)
		}
	}
	if tests[0].Line >= tests[1].Line {
		t.Errorf("records not ordered by line: %d then %d", tests[0].Line, tests[1].Line)
	}
	if tests[0].Line != 8 {
		t.Errorf("first record line = %d, want 8", tests[0].Line)
	}
}

func TestExtractGeneratedTests_NoMatches(t *testing.T) {
	tests, err := ExtractGeneratedTests([]byte(`fn ordinary() {}

#[test]
fn regular_test() { assert_eq!(1, 1); }
`))
	if err != nil {
		t.Fatalf("ExtractGeneratedTests: %v", err)
	}
	if len(tests) != 0 {
		t.Errorf("got %d generated tests, want 0", len(tests))
	}
}

func TestExtractGeneratedTests_Empty(t *testing.T) {
	tests, err := ExtractGeneratedTests(nil)
	if err != nil {
		t.Fatalf("ExtractGeneratedTests: %v", err)
	}
	if tests != nil {
		t.Errorf("got %v, want nil", tests)
	}
}

func TestExtractGeneratedTests_InsideTestModule(t *testing.T) {
	src := `#[cfg(test)]
mod tests {
    #[test]
    fn kani_concrete_playback_check_pop_deadbeef() {
        let concrete_vals: Vec<Vec<u8>> = vec![];
        kani::concrete_playback_run(concrete_vals, super::check_pop);
    }
}
`
	tests, err := ExtractGeneratedTests([]byte(src))
	if err != nil {
		t.Fatalf("ExtractGeneratedTests: %v", err)
	}
	if len(tests) != 1 {
		t.Fatalf("got %d generated tests, want 1", len(tests))
	}
	if tests[0].Harness != "super::check_pop" {
		t.Errorf("harness = %q, want super::check_pop", tests[0].Harness)
	}
}

func TestHarnessFromTestName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"kani_concrete_playback_insert_test_7155943916565760311", "insert_test"},
		{"kani_concrete_playback_check_pop_deadbeef", "check_pop"},
		// No hash-looking suffix: nothing to strip.
		{"kani_concrete_playback_verify", "verify"},
		{"kani_concrete_playback_check_pop", "check_pop"},
	}
	for _, tt := range tests {
		if got := harnessFromTestName(tt.in); got != tt.want {
			t.Errorf("harnessFromTestName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestExtractGeneratedTests_NameFallback(t *testing.T) {
	// Wrapper whose body does not name the harness: fall back to the name
	// convention.
	src := `#[test]
fn kani_concrete_playback_check_push_0123abcd() {
    todo!();
}
`
	tests, err := ExtractGeneratedTests([]byte(src))
	if err != nil {
		t.Fatalf("ExtractGeneratedTests: %v", err)
	}
	if len(tests) != 1 {
		t.Fatalf("got %d generated tests, want 1", len(tests))
	}
	if tests[0].Harness != "check_push" {
		t.Errorf("harness = %q, want check_push", tests[0].Harness)
	}
}
