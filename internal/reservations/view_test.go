package reservations

import "testing"

func f64(v float64) *float64 { return &v }

func TestBuildView(t *testing.T) {
	tests := []struct {
		name       string
		row        ManifestRow
		wantStatus Status
		wantFinal  float64
		wantDue    float64
		wantPaid   bool
	}{
		{
			name:       "fully paid with discount",
			row:        ManifestRow{Status: StatusActive, BasePrice: f64(80), DiscountAmount: 20, PaidAmount: 60},
			wantStatus: StatusActive, wantFinal: 60, wantDue: 0, wantPaid: true,
		},
		{
			name:       "partially paid",
			row:        ManifestRow{Status: StatusActive, BasePrice: f64(80), PaidAmount: 30.5},
			wantStatus: StatusActive, wantFinal: 80, wantDue: 49.5,
		},
		{
			name:       "discount larger than price",
			row:        ManifestRow{Status: StatusActive, BasePrice: f64(10), DiscountAmount: 15},
			wantStatus: StatusActive, wantFinal: 0, wantDue: 0, wantPaid: true,
		},
		{
			name:       "no price is never paid",
			row:        ManifestRow{Status: StatusActive, PaidAmount: 10},
			wantStatus: StatusActive,
		},
		{
			name:       "no-show overlays active",
			row:        ManifestRow{Status: StatusActive, BasePrice: f64(10), HasNoShow: true},
			wantStatus: StatusNoShow, wantFinal: 10, wantDue: 10,
		},
		{
			name:       "cancelled wins over no-show",
			row:        ManifestRow{Status: StatusCancelled, BasePrice: f64(10), HasNoShow: true},
			wantStatus: StatusCancelled, wantFinal: 10, wantDue: 10,
		},
		{
			name:       "rounding noise counts as paid",
			row:        ManifestRow{Status: StatusActive, BasePrice: f64(33.33), PaidAmount: 33.329},
			wantStatus: StatusActive, wantFinal: 33.33, wantDue: 0, wantPaid: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := BuildView(tt.row)
			if v.Status != tt.wantStatus || v.StoredStatus != tt.row.Status {
				t.Errorf("status = %s (stored %s), want %s", v.Status, v.StoredStatus, tt.wantStatus)
			}
			if v.FinalPrice != tt.wantFinal || v.DueAmount != tt.wantDue || v.IsPaid != tt.wantPaid {
				t.Errorf("final=%v due=%v paid=%v, want %v %v %v", v.FinalPrice, v.DueAmount, v.IsPaid, tt.wantFinal, tt.wantDue, tt.wantPaid)
			}
		})
	}
}
