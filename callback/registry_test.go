package callback

import "testing"

func TestRegistry_RequiresUserDataByDefault(t *testing.T) {
	g := NewRegistry()
	notify := ContextNotifyFunc(func(string, any, uint64, any) {})

	if reg := g.NewRegistration(notify, nil); reg != nil {
		t.Fatal("callback with nil user-data must not create a registration by default")
	}
	if reg := g.NewRegistration(nil, "data"); reg != nil {
		t.Fatal("nil callback must never create a registration")
	}
	if reg := g.NewRegistration(notify, "data"); reg == nil {
		t.Fatal("callback with user-data must create a registration")
	}
}

func TestRegistry_AllowNilUserData(t *testing.T) {
	g := NewRegistry(AllowNilUserData())
	notify := ContextNotifyFunc(func(string, any, uint64, any) {})

	reg := g.NewRegistration(notify, nil)
	if reg == nil {
		t.Fatal("with AllowNilUserData a nil user-data registration must be created")
	}
	if reg.UserData() != nil {
		t.Fatal("user-data must stay nil")
	}
	if g.NewRegistration(nil, nil) != nil {
		t.Fatal("nil callback must still be rejected")
	}
}

func TestRegistry_PutGetDestroy(t *testing.T) {
	g := NewRegistry()
	notify := BuildNotifyFunc(func(uint64, any) {})
	reg := g.NewRegistration(notify, "ud")

	g.Put(0x100, reg)
	if g.Len() != 1 {
		t.Fatalf("Len = %d, want 1", g.Len())
	}

	got, ok := g.Get(0x100)
	if !ok || got != reg {
		t.Fatal("Get must return the stored registration")
	}

	g.Destroy(0x100)
	if _, ok := g.Get(0x100); ok {
		t.Fatal("Get after Destroy must miss")
	}
	if g.Len() != 0 {
		t.Fatalf("Len = %d, want 0", g.Len())
	}

	// In-flight holders keep using their reference safely.
	if got.UserData() != "ud" {
		t.Fatal("registration obtained before Destroy must stay usable")
	}
}

func TestRegistry_PutIgnoresNil(t *testing.T) {
	g := NewRegistry()
	g.Put(0x1, nil)
	g.Put(0, &Registration{})
	if g.Len() != 0 {
		t.Fatalf("Len = %d, want 0", g.Len())
	}
}

func TestRegistry_PutReplaces(t *testing.T) {
	g := NewRegistry(AllowNilUserData())
	a := g.NewRegistration(BuildNotifyFunc(func(uint64, any) {}), nil)
	b := g.NewRegistration(BuildNotifyFunc(func(uint64, any) {}), nil)

	g.Put(0x5, a)
	g.Put(0x5, b)
	got, _ := g.Get(0x5)
	if got != b {
		t.Fatal("second Put must replace the registration")
	}
	if g.Len() != 1 {
		t.Fatalf("Len = %d, want 1", g.Len())
	}
}
