package pyscan

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAnalyze(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		defines []string
		uses    []string
		imports []string
	}{
		{
			name:    "simple assignment",
			src:     "y = name + '!'",
			defines: []string{"y"},
			uses:    []string{"name"},
		},
		{
			name:    "defined earlier is not a use",
			src:     "x = 1\ny = x + z",
			defines: []string{"x", "y"},
			uses:    []string{"z"},
		},
		{
			name:    "used before defined",
			src:     "print(a)\na = 1",
			defines: []string{"a"},
			uses:    []string{"a"},
		},
		{
			name:    "function parameters are local",
			src:     "def f(a, b=default):\n    c = a + b + g\n    return c\ng = 2\n",
			defines: []string{"f", "g"},
			uses:    []string{"default"},
		},
		{
			name:    "function body sees later top-level names",
			src:     "def show():\n    return later\nlater = 1\n",
			defines: []string{"later", "show"},
		},
		{
			name:    "nested closures",
			src:     "def outer(a):\n    def inner():\n        return a + b\n    return inner\n",
			defines: []string{"outer"},
			uses:    []string{"b"},
		},
		{
			name:    "class body",
			src:     "class Model(Base):\n    scale = factor\n    def predict(self, x):\n        return x * self.scale * weight\n",
			defines: []string{"Model"},
			uses:    []string{"Base", "factor", "weight"},
		},
		{
			name:    "method does not see class attributes",
			src:     "class A:\n    x = 1\n    def f(self): return x\n",
			defines: []string{"A"},
			uses:    []string{"x"},
		},
		{
			name:    "method in a class in a function sees the function locals",
			src:     "def make():\n    y = 1\n    class C:\n        y = 2\n        def m(self):\n            return y + z\n    return C\n",
			defines: []string{"make"},
			uses:    []string{"z"},
		},
		{
			name:    "decorator",
			src:     "@cache\ndef load(): return source\n",
			defines: []string{"load"},
			uses:    []string{"cache", "source"},
		},
		{
			name:    "global declaration exports",
			src:     "def bump():\n    global counter\n    counter += step\n",
			defines: []string{"bump", "counter"},
			uses:    []string{"step"},
		},
		{
			name:    "list comprehension",
			src:     "total = sum([v * k for v in values])",
			defines: []string{"total"},
			uses:    []string{"k", "values"},
		},
		{
			name:    "dict comprehension",
			src:     "m = {k: v for k, v in pairs.items() if v}",
			defines: []string{"m"},
			uses:    []string{"pairs"},
		},
		{
			name:    "generator argument",
			src:     "s = sum(x for x in xs)",
			defines: []string{"s"},
			uses:    []string{"xs"},
		},
		{
			name:    "lambda",
			src:     "f = lambda x, y=1: x + y + z",
			defines: []string{"f"},
			uses:    []string{"z"},
		},
		{
			name:    "imports",
			src:     "import pandas as pd\nimport os.path\nfrom os import path, sep as s\ndf = pd.read_csv(path)",
			defines: []string{"df"},
			imports: []string{"os", "path", "pd", "s"},
		},
		{
			name:    "parenthesized from import",
			src:     "from math import (\n    pi,\n    tau as t,\n)\n",
			imports: []string{"pi", "t"},
		},
		{
			name: "subscript and attribute targets",
			src:  `df["a"] = obj.attr`,
			uses: []string{"df", "obj"},
		},
		{
			name: "keyword arguments",
			src:  "plot(data=frame, x=col)",
			uses: []string{"col", "frame", "plot"},
		},
		{
			name:    "magics are ignored",
			src:     "%matplotlib inline\n!pip install x\nresult = 1",
			defines: []string{"result"},
		},
		{
			name:    "f-string fields",
			src:     `msg = f"{greeting}, {user.name!r:>{width}}"`,
			defines: []string{"msg"},
			uses:    []string{"greeting", "user", "width"},
		},
		{
			name:    "comprehension variable inside f-string",
			src:     `labels = [f"{v}-{suffix}" for v in items]`,
			defines: []string{"labels"},
			uses:    []string{"items", "suffix"},
		},
		{
			name:    "for loop",
			src:     "for i, row in enumerate(rows):\n    acc = acc + row\n",
			defines: []string{"acc", "i", "row"},
			uses:    []string{"acc", "rows"},
		},
		{
			name:    "with and except",
			src:     "with open(path) as fh:\n    data = fh.read()\ntry:\n    parsed = parse(data)\nexcept ValueError as err:\n    log(err)\n",
			defines: []string{"data", "fh", "parsed"},
			uses:    []string{"log", "parse", "path"},
		},
		{
			name:    "walrus",
			src:     "if (n := len(items)) > 10: print(n)",
			defines: []string{"n"},
			uses:    []string{"items"},
		},
		{
			name:    "chained and starred targets",
			src:     "a, *rest = b = source",
			defines: []string{"a", "b", "rest"},
			uses:    []string{"source"},
		},
		{
			name:    "strings and comments",
			src:     "s = \"hello world\"  # uses nothing\nt = '''x\ny = z'''",
			defines: []string{"s", "t"},
		},
		{
			name:    "continuation lines",
			src:     "total = (alpha +\n         beta)\nvalue = gamma \\\n    + delta\n",
			defines: []string{"total", "value"},
			uses:    []string{"alpha", "beta", "delta", "gamma"},
		},
		{
			name:    "annotated assignment",
			src:     "count: int = start\nlabel: str",
			defines: []string{"count"},
			uses:    []string{"start"},
		},
		{
			name:    "builtins and keywords",
			src:     "result = len(items) if items is not None else 0",
			defines: []string{"result"},
			uses:    []string{"items"},
		},
		{
			name:    "semicolons",
			src:     "a = 1; b = a + c",
			defines: []string{"a", "b"},
			uses:    []string{"c"},
		},
		{
			name:    "augmented assignment reads and defines",
			src:     "total += amount",
			defines: []string{"total"},
			uses:    []string{"amount", "total"},
		},
		{
			name:    "match statement",
			src:     "match command:\n    case Point(x=0, y=yy) if yy > limit:\n        out = yy\n",
			defines: []string{"out"},
			uses:    []string{"Point", "command", "limit"},
		},
		{
			name:    "match as a name",
			src:     "match = pattern.search(text)",
			defines: []string{"match"},
			uses:    []string{"pattern", "text"},
		},
		{
			name: "empty",
			src:  "\n\n# only a comment\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Analyze(tt.src)
			assert.Equal(t, orEmpty(tt.defines), got.Defines, "defines")
			assert.Equal(t, orEmpty(tt.uses), got.Uses, "uses")
			assert.Equal(t, orEmpty(tt.imports), got.Imports, "imports")
		})
	}
}

func TestAnalyze_Deterministic(t *testing.T) {
	src := "import numpy as np\ndef f(x):\n    return np.sum(x) + w\nz = f(q)\n"
	first := Analyze(src)
	for range 10 {
		assert.Equal(t, first, Analyze(src))
	}
}

func TestIsBuiltin(t *testing.T) {
	assert.True(t, IsBuiltin("print"))
	assert.True(t, IsBuiltin("display"))
	assert.True(t, IsBuiltin("ValueError"))
	assert.False(t, IsBuiltin("df"))
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
