package layershell

import "testing"

func TestLayerFromName(t *testing.T) {
	cases := []struct {
		name  string
		layer uint32
		ok    bool
	}{
		{"background", LayerBackground, true},
		{"", LayerBackground, true},
		{"bottom", LayerBottom, true},
		{"top", LayerTop, true},
		{"overlay", LayerOverlay, true},
		{"desktop", 0, false},
		{"Background", 0, false},
	}
	for _, c := range cases {
		layer, ok := LayerFromName(c.name)
		if ok != c.ok || layer != c.layer {
			t.Errorf("LayerFromName(%q) = %d, %v; want %d, %v", c.name, layer, ok, c.layer, c.ok)
		}
	}
}

func TestAnchorAllCoversEveryEdge(t *testing.T) {
	if AnchorAll != AnchorTop|AnchorBottom|AnchorLeft|AnchorRight {
		t.Fatalf("AnchorAll = %#x", AnchorAll)
	}
	if AnchorAll != 0xf {
		t.Fatalf("anchor bits drifted from the protocol values: %#x", AnchorAll)
	}
}
