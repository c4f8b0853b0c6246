package workers

import "testing"

func TestParseHandBrakeLine(t *testing.T) {
	update, ok := parseHandBrakeLine("Encoding: task 1 of 1, 45.23 % (120.34 fps, avg 115.00 fps, ETA 00h12m34s)")
	if !ok {
		t.Fatal("expected a progress update")
	}
	if update.Percent != 45.23 {
		t.Fatalf("unexpected percent %v", update.Percent)
	}
	if update.Throughput != "120.34 fps" {
		t.Fatalf("unexpected throughput %q", update.Throughput)
	}
	if update.ETA != "00h12m34s" {
		t.Fatalf("unexpected eta %q", update.ETA)
	}

	if _, ok := parseHandBrakeLine("Scanning title 1 of 1..."); ok {
		t.Fatal("scan lines carry no progress")
	}
	if update, ok := parseHandBrakeLine("Encoding: task 1 of 1, 5.00 %"); !ok || update.Percent != 5 {
		t.Fatalf("bare percent line should parse, got %+v ok=%v", update, ok)
	}
}

func TestParseYtdlpLine(t *testing.T) {
	update, ok := parseYtdlpLine("[download]  12.3% of 100.00MiB at 1.23MiB/s ETA 01:23")
	if !ok {
		t.Fatal("expected a progress update")
	}
	if update.Percent != 12.3 {
		t.Fatalf("unexpected percent %v", update.Percent)
	}
	if update.Throughput != "1.23MiB/s" {
		t.Fatalf("unexpected throughput %q", update.Throughput)
	}
	if update.ETA != "01:23" {
		t.Fatalf("unexpected eta %q", update.ETA)
	}

	if _, ok := parseYtdlpLine("[info] Downloading video thumbnail"); ok {
		t.Fatal("info lines carry no progress")
	}
	if update, ok := parseYtdlpLine("[download] 100% of 100.00MiB in 00:42"); !ok || update.Percent != 100 {
		t.Fatalf("final line should parse, got %+v ok=%v", update, ok)
	}
	if update, _ := parseYtdlpLine("[download]  50.0% of ~10MiB at 2MiB/s ETA Unknown"); update.ETA != "" {
		t.Fatalf("unknown eta should stay empty, got %q", update.ETA)
	}
}
