package stacktrace

import "testing"

func TestPythonParser_Gunicorn(t *testing.T) {
	raw := `Traceback (most recent call last):
			File "/usr/local/bin/gunicorn", line 8, in <module>
			File "/usr/local/lib/python3.7/sitepackages/gunicorn/app/wsgiapp.py", line 58, in run
			File "/usr/local/lib/python3.7/sitepackages/gunicorn/arbiter.py", line 616, in spawn_workers
			File "pyarrow/table.pxi", line 1394, in pyarrow.lib.Table.from_pandas
			File "pyarrow/array.pxi", line 83, in pyarrow.lib._ndarray_to_array`

	info := mustParse(t, PythonParser{}, raw)
	if str(info.Text) != raw {
		t.Error("expected raw text to be kept")
	}
	if info.Header != nil {
		t.Errorf("expected no header, got %q", str(info.Header))
	}
	assertFrames(t, info.Lines, []wantFrame{
		{"<module>", "/usr/local/bin/gunicorn", 8, 0},
		{"run", "/usr/local/lib/python3.7/sitepackages/gunicorn/app/wsgiapp.py", 58, 0},
		{"spawn_workers", "/usr/local/lib/python3.7/sitepackages/gunicorn/arbiter.py", 616, 0},
		{"pyarrow.lib.Table.from_pandas", "pyarrow/table.pxi", 1394, 0},
		{"pyarrow.lib._ndarray_to_array", "pyarrow/array.pxi", 83, 0},
	})
}

func TestPythonParser_ExceptionLine(t *testing.T) {
	raw := `Traceback (most recent call last):
  File "/srv/app/views.py", line 42, in checkout
    total = cart.total()
  File "/srv/app/cart.py", line 17, in total
    return sum(i.price for i in self.items) / count
ZeroDivisionError: division by zero
`

	info := mustParse(t, PythonParser{}, raw)
	if str(info.Header) != "ZeroDivisionError: division by zero" {
		t.Errorf("unexpected header %q", str(info.Header))
	}
	if str(info.Error) != "division by zero" {
		t.Errorf("unexpected error %q", str(info.Error))
	}
	assertFrames(t, info.Lines, []wantFrame{
		{"checkout", "/srv/app/views.py", 42, 0},
		{"total", "/srv/app/cart.py", 17, 0},
	})
}
