package server

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShipInBlast(t *testing.T) {
	// 50x50 船体，半高 25，爆炸半径 50，命中距离 75
	ship := NewShip(1, 7, Point{X: 100, Y: 100}, 50, 3)

	cases := []struct {
		name string
		at   Point
		hit  bool
	}{
		{"center", Point{X: 100, Y: 100}, true},
		{"far", Point{X: 300, Y: 300}, false},
		{"boundary", Point{X: 175, Y: 100}, true},
		{"just outside", Point{X: 176, Y: 100}, false},
		{"diagonal inside", Point{X: 145, Y: 145}, true},
		{"diagonal outside", Point{X: 154, Y: 154}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.hit, ship.InBlast(tc.at, 50))
		})
	}
}

func TestShipHitUntilInactive(t *testing.T) {
	ship := NewShip(1, 7, Point{}, 50, 3)
	assert.Equal(t, ShipGunner, ship.Type)
	for i := 0; i < 3; i++ {
		assert.True(t, ship.Active())
		ship.Hit()
	}
	assert.False(t, ship.Active())
	ship.Hit()
	assert.Equal(t, 0, ship.Health)
}
