package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/verte-zerg/zonecalc/internal/model"
)

func TestParseAnswer(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		lenient bool
		want    []model.RawRecord
	}{
		{
			name: "plain json",
			text: `{"results":[{"game":10,"type":"BB"}]}`,
			want: []model.RawRecord{{Game: 10, Type: model.BonusBB}},
		},
		{
			name: "embedded json",
			text: "こちらです:\n```json\n{\"results\":[{\"game\":7,\"type\":\"RB\"}]}\n```",
			want: []model.RawRecord{{Game: 7, Type: model.BonusRB}},
		},
		{
			name: "invalid entries dropped",
			text: `{"results":[{"game":"12","type":"BB"},{"game":5,"type":"CURRENT"},{"game":1.5,"type":"RB"},{"game":3,"type":"RB"}]}`,
			want: []model.RawRecord{{Game: 3, Type: model.BonusRB}},
		},
		{
			name: "malformed strict",
			text: "123 BB, 45 RB",
			want: nil,
		},
		{
			name:    "malformed lenient",
			text:    "123 BB, 45rb, 0 BB",
			lenient: true,
			want: []model.RawRecord{
				{Game: 123, Type: model.BonusBB},
				{Game: 45, Type: model.BonusRB},
			},
		},
		{
			name:    "lenient per line",
			text:    "300G BB\n80G RB",
			lenient: true,
			want: []model.RawRecord{
				{Game: 300, Type: model.BonusBB},
				{Game: 80, Type: model.BonusRB},
			},
		},
		{
			name: "missing results",
			text: `{"items":[]}`,
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseAnswer(tt.text, tt.lenient)
			if tt.want == nil {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}
