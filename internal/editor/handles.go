package editor

import (
	"strings"

	"github.com/AaronLay10/FrameScene/internal/scene"
)

type kindSet map[scene.NodeKind]struct{}

func kinds(ks ...scene.NodeKind) kindSet {
	out := make(kindSet, len(ks))
	for _, k := range ks {
		out[k] = struct{}{}
	}
	return out
}

func (s kindSet) has(k scene.NodeKind) bool {
	_, ok := s[k]
	return ok
}

func (s kindSet) String() string {
	names := make([]string, 0, len(s))
	for _, k := range []scene.NodeKind{scene.KindApp, scene.KindEvent, scene.KindState, scene.KindCode, scene.KindScene, scene.KindDispatch} {
		if s.has(k) {
			names = append(names, string(k))
		}
	}
	return strings.Join(names, ", ")
}

// handleRule is one allowed way of connecting two handles.
type handleRule struct {
	name    string
	match   func(sourceHandle, targetHandle string) bool
	sources kindSet
	targets kindSet
}

// Consumers that expose fieldInput/<name> slots.
var inputKinds = kinds(scene.KindApp, scene.KindDispatch, scene.KindScene, scene.KindCode)

var handleRules = []handleRule{
	{
		name: "execution",
		match: func(sh, th string) bool {
			return sh == scene.HandleNext && th == scene.HandlePrev
		},
		sources: kinds(scene.KindApp, scene.KindEvent, scene.KindDispatch, scene.KindScene),
		targets: kinds(scene.KindApp, scene.KindDispatch, scene.KindScene),
	},
	{
		name: "fieldOutput",
		match: func(sh, th string) bool {
			return sh == scene.HandleFieldOutput && scene.IsFieldInputHandle(th)
		},
		sources: kinds(scene.KindApp, scene.KindState),
		targets: inputKinds,
	},
	{
		name: "stateOutput",
		match: func(sh, th string) bool {
			return sh == scene.HandleStateOutput && scene.IsFieldInputHandle(th)
		},
		sources: kinds(scene.KindState),
		targets: inputKinds,
	},
	{
		name: "field path",
		match: func(sh, th string) bool {
			return scene.IsFieldPathHandle(sh) && th == scene.HandlePrev
		},
		sources: kinds(scene.KindApp, scene.KindDispatch, scene.KindScene, scene.KindEvent),
		targets: kinds(scene.KindApp, scene.KindCode, scene.KindState),
	},
}

func matchRule(sh, th string) (handleRule, bool) {
	for _, r := range handleRules {
		if r.match(sh, th) {
			return r, true
		}
	}
	return handleRule{}, false
}
