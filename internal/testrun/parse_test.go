package testrun_test

import (
	"strings"
	"testing"

	"github.com/marklab/marksman/internal/testrun"
)

const pytestOutput = `============================= test session starts ==============================
platform linux -- Python 3.11.4, pytest-7.4.0, pluggy-1.2.0 -- /usr/bin/python3
rootdir: /tmp/work
collected 3 items

test_problem1.py::test_add PASSED                                        [ 33%]
test_problem1.py::test_sub FAILED                                        [ 66%]
test_problem1.py::test_mul PASSED                                        [100%]

=================================== FAILURES ===================================
___________________________________ test_sub ___________________________________

    def test_sub():
>       assert sub(3, 1) == 1
E       assert 2 == 1
E        +  where 2 = sub(3, 1)

test_problem1.py:12: AssertionError
=========================== short test summary info ============================
FAILED test_problem1.py::test_sub - assert 2 == 1
========================= 1 failed, 2 passed in 0.04s ==========================
`

func TestParseOutput(t *testing.T) {
	p := testrun.ParseOutput(pytestOutput)

	if p.PassedTests != 2 {
		t.Errorf("passed = %d, want 2", p.PassedTests)
	}
	if p.FailedTests != 1 {
		t.Errorf("failed = %d, want 1 (short summary recap must not double-count)", p.FailedTests)
	}
	if p.TotalTests != p.PassedTests+p.FailedTests {
		t.Errorf("total %d != passed %d + failed %d", p.TotalTests, p.PassedTests, p.FailedTests)
	}
	if !strings.Contains(p.SummaryLine, "1 failed, 2 passed") {
		t.Errorf("unexpected summary line: %q", p.SummaryLine)
	}

	if len(p.Failures) != 1 {
		t.Fatalf("expected 1 failure excerpt, got %d", len(p.Failures))
	}
	f := p.Failures[0]
	if f.Name != "test_sub" {
		t.Errorf("failure name = %q, want test_sub", f.Name)
	}
	if f.Message != "assert 2 == 1" {
		t.Errorf("failure message = %q", f.Message)
	}
	if len(f.Context) == 0 || len(f.Context) > 5 {
		t.Errorf("context should hold 1-5 lines, got %d", len(f.Context))
	}
}

func TestParseOutputAllPassed(t *testing.T) {
	output := `collected 2 items

test_problem2.py::test_one PASSED                                        [ 50%]
test_problem2.py::test_two PASSED                                        [100%]

============================== 2 passed in 0.01s ===============================
`
	p := testrun.ParseOutput(output)
	if p.PassedTests != 2 || p.FailedTests != 0 || p.TotalTests != 2 {
		t.Errorf("counts = %d/%d/%d, want 2/0/2", p.PassedTests, p.FailedTests, p.TotalTests)
	}
	if len(p.Failures) != 0 {
		t.Errorf("expected no failures, got %v", p.Failures)
	}
}

func TestParseOutputCollectionError(t *testing.T) {
	output := `============================= test session starts ==============================
collected 0 items / 1 error

==================================== ERRORS ====================================
________________________ ERROR collecting test_problem1.py _____________________
ImportError while importing test module.
=========================== short test summary info ============================
ERROR test_problem1.py
!!!!!!!!!!!!!!!!!!!! Interrupted: 1 error during collection !!!!!!!!!!!!!!!!!!!!
=============================== 1 error in 0.12s ===============================
`
	p := testrun.ParseOutput(output)
	if p.TotalTests != 0 {
		t.Errorf("collection error should yield no counted tests, got %d", p.TotalTests)
	}
	if !strings.Contains(p.SummaryLine, "1 error") {
		t.Errorf("unexpected summary line: %q", p.SummaryLine)
	}
}

func TestParseOutputEmpty(t *testing.T) {
	p := testrun.ParseOutput("")
	if p.TotalTests != 0 || p.SummaryLine != "" || len(p.Failures) != 0 {
		t.Errorf("empty output should parse to zero values: %+v", p)
	}
}
