package geo

import (
	"errors"
	"os"
	"testing"

	"reportagua/internal/shared/models"
)

func TestStaticLocator(t *testing.T) {
	if _, err := (StaticLocator{}).Locate(); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("unset locator: %v", err)
	}
	p, err := (StaticLocator{Point: models.Point{Lat: 19.4, Lng: -99.1}, Set: true}).Locate()
	if err != nil {
		t.Fatal(err)
	}
	if p.Lat != 19.4 {
		t.Fatalf("point: %+v", p)
	}
	if _, err := (StaticLocator{Point: models.Point{Lat: 95, Lng: 0}, Set: true}).Locate(); err == nil {
		t.Fatal("out-of-range point accepted")
	}
}

func TestFromEnv(t *testing.T) {
	t.Setenv("REPORTAGUA_LAT", "19.43")
	t.Setenv("REPORTAGUA_LNG", "-99.13")
	p, err := FromEnv().Locate()
	if err != nil {
		t.Fatal(err)
	}
	if p.Lng != -99.13 {
		t.Fatalf("point: %+v", p)
	}

	t.Setenv("REPORTAGUA_LAT", "no-es-numero")
	if _, err := FromEnv().Locate(); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("bad env: %v", err)
	}
}

func TestFromEnvUnset(t *testing.T) {
	os.Unsetenv("REPORTAGUA_LAT")
	os.Unsetenv("REPORTAGUA_LNG")
	if _, err := FromEnv().Locate(); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("unset env: %v", err)
	}
}
