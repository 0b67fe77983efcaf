package models

import (
	"encoding/json"
	"testing"
)

func TestPointWKTRoundTrip(t *testing.T) {
	p := Point{Lat: 19.4326, Lng: -99.1332}
	wkt := p.WKT()
	if wkt != "POINT(-99.1332 19.4326)" {
		t.Fatalf("wkt: %s", wkt)
	}
	parsed, err := ParseWKT(wkt)
	if err != nil {
		t.Fatal(err)
	}
	if parsed != p {
		t.Fatalf("round trip: %+v != %+v", parsed, p)
	}
}

func TestParseWKTRejectsGarbage(t *testing.T) {
	for _, s := range []string{"", "19.4,-99.1", "POINT()", "POINT(-99.1)", "POINT(-200 95)"} {
		if _, err := ParseWKT(s); err == nil {
			t.Errorf("ParseWKT(%q) accepted", s)
		}
	}
}

func TestEnums(t *testing.T) {
	if !ProblemFuga.Valid() || ProblemType("INUNDACION").Valid() {
		t.Fatal("problem type validity")
	}
	if !StatusEnProceso.Valid() || ReportStatus("ABIERTO").Valid() {
		t.Fatal("status validity")
	}
	if !StatusResuelto.Terminal() || !StatusCancelado.Terminal() || StatusAsignado.Terminal() {
		t.Fatal("terminal states")
	}
}

func TestDashboardStatsPartialPayload(t *testing.T) {
	// a payload missing sub-fields must decode to zero values, not fail
	var s DashboardStats
	if err := json.Unmarshal([]byte(`{"kpis":{"total_historico":7}}`), &s); err != nil {
		t.Fatal(err)
	}
	if s.KPIs.TotalHistorico != 7 || s.KPIs.Resueltos != 0 {
		t.Fatalf("stats: %+v", s)
	}
	if err := json.Unmarshal([]byte(`{}`), &s); err != nil {
		t.Fatal(err)
	}
}
