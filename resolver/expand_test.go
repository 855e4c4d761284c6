package resolver_test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/alecthomas/assert/v2"
	"pgregory.net/rapid"

	"github.com/esplang/espc/diag"
	"github.com/esplang/espc/execctx"
)

// SET union expansion through a local container object (spec scenario):
// the criterion ends up with the concrete members, no local object, and the
// set is listed for audit.
func TestSetUnionExpansion(t *testing.T) {
	ctx := mustResolve(t, `
DEF
  OBJECT o1 path `+"`/a`"+` OBJECT_END
  OBJECT o2 path `+"`/b`"+` OBJECT_END
  SET s union
    OBJECT_REF o1
    OBJECT_REF o2
  SET_END
  CRI AND
    CTN x
      TEST any all
      OBJECT c
        SET_REF s
      OBJECT_END
    CTN_END
  CRI_END
DEF_END
`)

	ctn := firstCriterion(t, ctx)
	assert.Equal(t, []string{"o1", "o2"}, objectIDs(ctn.ObjectRefs))
	assert.Zero(t, ctn.LocalObject)

	assert.Equal(t, 1, len(ctx.Sets))
	assert.Equal(t, "s", ctx.Sets[0].ID)
	assert.Equal(t, "union", ctx.Sets[0].Operation)
	assert.Equal(t, []string{"o1", "o2"}, ctx.Sets[0].Members)
}

func TestSetIntersectionAndComplement(t *testing.T) {
	ctx := mustResolve(t, `
DEF
  OBJECT o1 path `+"`/a`"+` OBJECT_END
  OBJECT o2 path `+"`/b`"+` OBJECT_END
  OBJECT o3 path `+"`/c`"+` OBJECT_END
  SET ab union
    OBJECT_REF o1
    OBJECT_REF o2
  SET_END
  SET bc union
    OBJECT_REF o2
    OBJECT_REF o3
  SET_END
  SET mid intersection
    SET_REF ab
    SET_REF bc
  SET_END
  SET onlya complement
    SET_REF ab
    SET_REF bc
  SET_END
  CRI AND
    CTN x
      TEST any all
      OBJECT c
        SET_REF mid
      OBJECT_END
    CTN_END
    CTN y
      TEST any all
      OBJECT d
        SET_REF onlya
      OBJECT_END
    CTN_END
  CRI_END
DEF_END
`)

	byID := map[string][]string{}
	for _, entry := range ctx.Sets {
		byID[entry.ID] = entry.Members
	}
	assert.Equal(t, []string{"o2"}, byID["mid"])
	assert.Equal(t, []string{"o1"}, byID["onlya"])

	root := ctx.Criteria[0]
	assert.Equal(t, []string{"o2"}, objectIDs(root.Children[0].Criterion.ObjectRefs))
	assert.Equal(t, []string{"o1"}, objectIDs(root.Children[1].Criterion.ObjectRefs))
}

// Filters on sets attach to every expanded reference.
func TestSetFilterAttachment(t *testing.T) {
	ctx := mustResolve(t, `
DEF
  STATE readable ok boolean = true STATE_END
  OBJECT o1 path `+"`/a`"+` OBJECT_END
  OBJECT o2 path `+"`/b`"+` OBJECT_END
  SET s union
    OBJECT_REF o1
    OBJECT_REF o2
    FILTER include
      STATE_REF readable
    FILTER_END
  SET_END
  CRI AND
    CTN x
      TEST any all
      OBJECT c
        SET_REF s
      OBJECT_END
    CTN_END
  CRI_END
DEF_END
`)

	ctn := firstCriterion(t, ctx)
	assert.Equal(t, 2, len(ctn.ObjectRefs))
	for _, ref := range ctn.ObjectRefs {
		assert.Equal(t, 1, len(ref.Filters))
		assert.Equal(t, "include", ref.Filters[0].Action)
		assert.Equal(t, []string{"readable"}, ref.Filters[0].States)
	}
}

// The exclude action is preserved verbatim; the compiler invents no
// semantics for it.
func TestExcludeFilterPreserved(t *testing.T) {
	ctx := mustResolve(t, `
DEF
  STATE hidden ok boolean = true STATE_END
  OBJECT o1 path `+"`/a`"+` OBJECT_END
  SET s union
    OBJECT_REF o1
    FILTER exclude
      STATE_REF hidden
    FILTER_END
  SET_END
  CRI AND
    CTN x
      TEST any all
      OBJECT c
        SET_REF s
      OBJECT_END
    CTN_END
  CRI_END
DEF_END
`)

	ctn := firstCriterion(t, ctx)
	assert.Equal(t, "exclude", ctn.ObjectRefs[0].Filters[0].Action)
}

// Nested sets expand recursively; duplicates are removed keeping first-seen
// order.
func TestNestedSetExpansionDedup(t *testing.T) {
	ctx := mustResolve(t, `
DEF
  OBJECT o1 path `+"`/a`"+` OBJECT_END
  OBJECT o2 path `+"`/b`"+` OBJECT_END
  SET inner union
    OBJECT_REF o2
    OBJECT_REF o1
  SET_END
  SET outer union
    OBJECT_REF o1
    SET_REF inner
  SET_END
  CRI AND
    CTN x
      TEST any all
      OBJECT c
        SET_REF outer
      OBJECT_END
    CTN_END
  CRI_END
DEF_END
`)

	ctn := firstCriterion(t, ctx)
	assert.Equal(t, []string{"o1", "o2"}, objectIDs(ctn.ObjectRefs))
}

// Inline operand objects contribute themselves and are materialized as
// referenceable global objects.
func TestInlineObjectOperand(t *testing.T) {
	ctx := mustResolve(t, `
DEF
  OBJECT o1 path `+"`/a`"+` OBJECT_END
  SET s union
    OBJECT_REF o1
    OBJECT extra
      path `+"`/b`"+`
    OBJECT_END
  SET_END
  CRI AND
    CTN x
      TEST any all
      OBJECT c
        SET_REF s
      OBJECT_END
    CTN_END
  CRI_END
DEF_END
`)

	ctn := firstCriterion(t, ctx)
	assert.Equal(t, []string{"o1", "extra"}, objectIDs(ctn.ObjectRefs))

	found := false
	for _, entry := range ctx.Objects {
		if entry.ID == "extra" {
			found = true
		}
	}
	assert.True(t, found)
}

// A set expanding through itself is fatal.
func TestSetCycleDetection(t *testing.T) {
	_, sink := resolve(t, `
DEF
  OBJECT o1 path `+"`/a`"+` OBJECT_END
  SET a union
    OBJECT_REF o1
    SET_REF b
  SET_END
  SET b union
    SET_REF a
  SET_END
  CRI AND
    CTN x
      TEST any all
      OBJECT c
        SET_REF a
      OBJECT_END
    CTN_END
  CRI_END
DEF_END
`)

	assert.True(t, sink.HasErrors())
	found := false
	for _, d := range sink.Errors() {
		if d.Code == diag.SetExpansionError {
			found = true
		}
	}
	assert.True(t, found)
}

// buildUnionSource constructs a policy whose single criterion pulls in a
// union over the given operand object lists.
func buildUnionSource(operands [][]int, objectCount int) string {
	var b strings.Builder
	b.WriteString("DEF\n")
	for i := 0; i < objectCount; i++ {
		fmt.Fprintf(&b, "  OBJECT obj%d path `/o%d` OBJECT_END\n", i, i)
	}
	for i, ops := range operands {
		fmt.Fprintf(&b, "  SET part%d union\n", i)
		for _, o := range ops {
			fmt.Fprintf(&b, "    OBJECT_REF obj%d\n", o)
		}
		b.WriteString("  SET_END\n")
	}
	b.WriteString("  SET combined union\n")
	for i := range operands {
		fmt.Fprintf(&b, "    SET_REF part%d\n", i)
	}
	b.WriteString("  SET_END\n")
	b.WriteString("  CRI AND\n    CTN x\n      TEST any all\n      OBJECT c\n        SET_REF combined\n      OBJECT_END\n    CTN_END\n  CRI_END\nDEF_END\n")
	return b.String()
}

// Union is commutative as membership: swapping operand order changes only
// the order, never the membership.
func TestUnionCommutativityProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		objectCount := rapid.IntRange(1, 6).Draw(rt, "objects")
		a := rapid.SliceOfN(rapid.IntRange(0, objectCount-1), 1, 8).Draw(rt, "a")
		b := rapid.SliceOfN(rapid.IntRange(0, objectCount-1), 1, 8).Draw(rt, "b")

		ctxAB := mustResolve(t, buildUnionSource([][]int{a, b}, objectCount))
		ctxBA := mustResolve(t, buildUnionSource([][]int{b, a}, objectCount))

		memberSet := func(ctx *execctx.ExecutionContext) map[string]bool {
			out := map[string]bool{}
			for _, entry := range ctx.Sets {
				if entry.ID == "combined" {
					for _, m := range entry.Members {
						out[m] = true
					}
				}
			}
			return out
		}
		ab, ba := memberSet(ctxAB), memberSet(ctxBA)
		if len(ab) != len(ba) {
			rt.Fatalf("membership differs: %v vs %v", ab, ba)
		}
		for m := range ab {
			if !ba[m] {
				rt.Fatalf("member %q missing after operand swap", m)
			}
		}
	})
}

// Complement law: complement(A, B) together with A ∩ B restores A's
// membership exactly.
func TestComplementLawProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		objectCount := rapid.IntRange(1, 6).Draw(rt, "objects")
		a := rapid.SliceOfN(rapid.IntRange(0, objectCount-1), 1, 8).Draw(rt, "a")
		b := rapid.SliceOfN(rapid.IntRange(0, objectCount-1), 1, 8).Draw(rt, "b")

		var src strings.Builder
		src.WriteString("DEF\n")
		for i := 0; i < objectCount; i++ {
			fmt.Fprintf(&src, "  OBJECT obj%d path `/o%d` OBJECT_END\n", i, i)
		}
		writeSet := func(name, op string, refs []string) {
			fmt.Fprintf(&src, "  SET %s %s\n", name, op)
			for _, r := range refs {
				fmt.Fprintf(&src, "    %s\n", r)
			}
			src.WriteString("  SET_END\n")
		}
		var aRefs, bRefs []string
		for _, o := range a {
			aRefs = append(aRefs, fmt.Sprintf("OBJECT_REF obj%d", o))
		}
		for _, o := range b {
			bRefs = append(bRefs, fmt.Sprintf("OBJECT_REF obj%d", o))
		}
		writeSet("seta", "union", aRefs)
		writeSet("setb", "union", bRefs)
		writeSet("diff", "complement", []string{"SET_REF seta", "SET_REF setb"})
		writeSet("common", "intersection", []string{"SET_REF seta", "SET_REF setb"})
		src.WriteString("  CRI AND\n    CTN x\n      TEST any all\n      OBJECT c\n        SET_REF seta\n      OBJECT_END\n    CTN_END\n  CRI_END\nDEF_END\n")

		ctx := mustResolve(t, src.String())

		members := map[string]map[string]bool{}
		for _, entry := range ctx.Sets {
			set := map[string]bool{}
			for _, m := range entry.Members {
				set[m] = true
			}
			members[entry.ID] = set
		}

		reunion := map[string]bool{}
		for m := range members["diff"] {
			reunion[m] = true
		}
		for m := range members["common"] {
			reunion[m] = true
		}
		if len(reunion) != len(members["seta"]) {
			rt.Fatalf("complement(A,B) + (A intersect B) = %v, want %v", reunion, members["seta"])
		}
		for m := range members["seta"] {
			if !reunion[m] {
				rt.Fatalf("member %q of A lost by complement/intersection split", m)
			}
		}
	})
}
