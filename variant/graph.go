package variant

import (
	"strings"

	"github.com/pmengelbert/stack"
	"k8s.io/apimachinery/pkg/util/sets"

	"github.com/archlayer/pkgforge/diag"
	"github.com/archlayer/pkgforge/recipe/stage1"
)

// Output is one named output of a multi-output recipe, along with the
// `pin_subpackage` names its dependencies reference.
type Output struct {
	Name string
	Deps []string
}

type vertex struct {
	name    string
	index   *int
	lowlink int
	onStack bool
}

// OutputsOf collects the pin_subpackage targets an output's requirements
// reference, used to build the dependency graph before sorting.
func OutputsOf(name string, reqs stage1.Requirements) Output {
	deps := sets.New[string]()
	collect := func(list []stage1.Dependency) {
		for _, d := range list {
			if d.Kind == stage1.DepPinSubpackage && d.Pin != nil {
				deps.Insert(d.Pin.Name)
			}
		}
	}
	collect(reqs.Build)
	collect(reqs.Host)
	collect(reqs.Run)
	return Output{Name: name, Deps: deps.UnsortedList()}
}

// TopoSort orders outputs so each appears after every output it
// pin_subpackage-depends on (spec.md §4.4 step 6). A cycle in the
// pin_subpackage graph is an error, matching the Tarjan-SCC-detects-a-group
// style Azure-dalec's own BuildGraph uses for image-target dependencies,
// adapted here to recipe outputs instead of build targets.
func TopoSort(outputs []Output) ([]string, error) {
	byName := make(map[string]Output, len(outputs))
	vertices := make([]*vertex, len(outputs))
	indices := make(map[string]int, len(outputs))
	for i, o := range outputs {
		byName[o.Name] = o
		v := &vertex{name: o.Name}
		vertices[i] = v
		indices[o.Name] = i
	}

	edges := sets.New[[2]string]()
	for _, o := range outputs {
		for _, dep := range o.Deps {
			if _, ok := indices[dep]; !ok {
				continue // references an output outside this recipe, e.g. a real package
			}
			if dep == o.Name {
				continue
			}
			edges.Insert([2]string{o.Name, dep})
		}
	}

	index := 0
	s := stack.New[*vertex]()
	var sccs [][]*vertex

	var strongConnect func(v *vertex)
	strongConnect = func(v *vertex) {
		i := index
		v.index = &i
		v.lowlink = index
		index++
		s.Push(v)
		v.onStack = true

		for edge := range edges {
			if edge[0] != v.name {
				continue
			}
			w := vertices[indices[edge[1]]]
			if w.index == nil {
				strongConnect(w)
				v.lowlink = minInt(v.lowlink, w.lowlink)
			} else if w.onStack {
				v.lowlink = minInt(v.lowlink, *w.index)
			}
		}

		if v.lowlink == *v.index {
			var component []*vertex
			for {
				opt := s.Pop()
				if !opt.IsSome() {
					break
				}
				w := opt.Unwrap()
				w.onStack = false
				component = append(component, w)
				if w == v {
					break
				}
			}
			sccs = append(sccs, component)
		}
	}

	for _, v := range vertices {
		if v.index == nil {
			strongConnect(v)
		}
	}

	names := make([]string, 0, len(outputs))
	for _, component := range sccs {
		if len(component) > 1 {
			return nil, diag.New(diag.KindVariant, diag.Span{}, "pin_subpackage cycle: %s", cycleString(component))
		}
		names = append(names, component[0].name)
	}
	// Edges run dependent → dependency, and strongConnect emits an SCC only
	// after every SCC reachable from it, so names already lists
	// dependencies before their dependents.
	return names, nil
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func cycleString(c []*vertex) string {
	names := make([]string, len(c))
	for i, v := range c {
		names[i] = v.name
	}
	return "{ " + strings.Join(names, ", ") + " }"
}
