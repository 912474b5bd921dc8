package liveness

import (
	"testing"

	"github.com/cmtlang/deadvalue/internal/cmt"
	"github.com/cmtlang/deadvalue/internal/tag"
)

func TestJoinIdentityAndAbsorbing(t *testing.T) {
	f := Func(Bot)
	if !Equal(Join(Bot, f), f) {
		t.Errorf("Bot should be Join's identity")
	}
	if !Equal(Join(f, Bot), f) {
		t.Errorf("Join should be commutative with Bot")
	}
	if !Equal(Join(Top, f), Top) {
		t.Errorf("Top should absorb any Join")
	}
	if !Equal(Join(f, Top), Top) {
		t.Errorf("Join should be commutative with Top")
	}
}

func TestJoinIdempotentAndCommutative(t *testing.T) {
	a := FromField(tag.NewOrdinary("Some"), 0, Top)
	b := FromField(tag.NewOrdinary("None"), 0, Bot)

	if !Equal(Join(a, a), a) {
		t.Errorf("Join should be idempotent")
	}
	if !Equal(Join(a, b), Join(b, a)) {
		t.Errorf("Join should be commutative")
	}
}

func TestJoinMismatchedShapesWidenToTop(t *testing.T) {
	f := Func(Bot)
	c := FromField(tag.TupleTag, 0, Bot)
	if !Join(f, c).IsTop() {
		t.Errorf("joining a Func shape with a Ctor shape should widen to Top")
	}
}

func TestBody(t *testing.T) {
	if !Equal(Body(Func(Top)), Top) {
		t.Errorf("Body(Func(l)) should be l")
	}
	if !Equal(Body(Top), Top) {
		t.Errorf("Body(Top) should be Top")
	}
	if !Equal(Body(Bot), Bot) {
		t.Errorf("Body of a non-Func, non-Top value should be Bot")
	}
}

func TestFieldRoundTrip(t *testing.T) {
	someTag := tag.NewOrdinary("Some")
	l := FromField(someTag, 1, Top)
	if !Equal(Field(l, someTag, 1), Top) {
		t.Errorf("Field should recover the slot FromField wrote")
	}
	if !Equal(Field(l, someTag, 0), Bot) {
		t.Errorf("an untouched slot should read Bot")
	}
	if !Equal(Field(l, tag.NewOrdinary("None"), 0), Bot) {
		t.Errorf("a tag absent from the map should read Bot")
	}
	if !Equal(Field(Top, someTag, 0), Top) {
		t.Errorf("Field of Top should be Top at any slot")
	}
}

func TestControlledByPatConst(t *testing.T) {
	// A constant pattern demands the whole scrutinee; an absent
	// pattern demands nothing.
	if !Equal(ControlledByPat(&cmt.PConst{Value: 1}), Top) {
		t.Errorf("a constant pattern should demand Top")
	}
	if !Equal(ControlledByPat(nil), Bot) {
		t.Errorf("a nil pattern should demand Bot")
	}
}

func TestMeetDualToJoin(t *testing.T) {
	f := Func(Top)
	if !Equal(Meet(Top, f), f) {
		t.Errorf("Top should be Meet's identity")
	}
	if !Equal(Meet(Bot, f), Bot) {
		t.Errorf("Bot should absorb Meet")
	}
}
