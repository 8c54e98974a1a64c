package knowledge

import "testing"

func TestNewStoreValidatesTableName(t *testing.T) {
	tests := []struct {
		name      string
		tableName string
		wantErr   bool
	}{
		{"valid simple", "product_pages", false},
		{"valid with digits", "pages_2024", false},
		{"leading underscore", "_pages", false},
		{"uppercase start", "Pages", true},
		{"sql injection", "pages; DROP TABLE users", true},
		{"empty", "", true},
		{"hyphen", "product-pages", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewStore(nil, nil, tt.tableName, 1000, 200)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewStore(%q) error = %v, wantErr %v", tt.tableName, err, tt.wantErr)
			}
		})
	}
}

func TestNewStoreClampsChunkConfig(t *testing.T) {
	s, err := NewStore(nil, nil, "pages", 0, -5)
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	if s.chunkSize != 1000 {
		t.Errorf("chunkSize = %d", s.chunkSize)
	}
	if s.chunkOverlap != 200 {
		t.Errorf("chunkOverlap = %d", s.chunkOverlap)
	}

	s, _ = NewStore(nil, nil, "pages", 100, 100)
	if s.chunkOverlap >= s.chunkSize {
		t.Errorf("overlap not clamped below chunk size: %d", s.chunkOverlap)
	}
}
