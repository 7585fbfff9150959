package imagegen

import "testing"

func TestIsLocalEndpoint(t *testing.T) {
	tests := []struct {
		name     string
		endpoint string
		expected bool
	}{
		{
			name:     "empty string returns false",
			endpoint: "",
			expected: false,
		},
		{
			name:     "localhost returns true",
			endpoint: "http://localhost:1234",
			expected: true,
		},
		{
			name:     "127.0.0.1 returns true",
			endpoint: "http://127.0.0.1:8080",
			expected: true,
		},
		{
			name:     "0.0.0.0 returns true",
			endpoint: "http://0.0.0.0:5000",
			expected: true,
		},
		{
			name:     "192.168.x.x returns true",
			endpoint: "http://192.168.1.100:5000",
			expected: true,
		},
		{
			name:     "10.x.x.x returns true",
			endpoint: "http://10.0.0.50:8080",
			expected: true,
		},
		{
			name:     "case insensitive - LOCALHOST",
			endpoint: "http://LOCALHOST:1234",
			expected: true,
		},
		{
			name:     "public IP returns false",
			endpoint: "http://203.0.113.50:8080",
			expected: false,
		},
		{
			name:     "hostname starting with 10 returns false",
			endpoint: "https://10gen.example.com",
			expected: false,
		},
		{
			name:     "api.openai.com returns false",
			endpoint: "https://api.openai.com/v1",
			expected: false,
		},
		{
			name:     "unparseable returns false",
			endpoint: "::not a url",
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := IsLocalEndpoint(tt.endpoint)
			if result != tt.expected {
				t.Errorf("IsLocalEndpoint(%q) = %v, want %v", tt.endpoint, result, tt.expected)
			}
		})
	}
}

func TestOpenAISizeFor(t *testing.T) {
	tests := []struct {
		model   string
		ratio   string
		want    string
		wantErr bool
	}{
		{"dall-e-3", "16:9", "1792x1024", false},
		{"dall-e-3", "9:16", "1024x1792", false},
		{"dall-e-3", "1:1", "1024x1024", false},
		{"gpt-image-1", "16:9", "1536x1024", false},
		{"gpt-image-1", "9:16", "1024x1536", false},
		{"dall-e-3", "21:9", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.model+"/"+tt.ratio, func(t *testing.T) {
			got, err := OpenAISizeFor(tt.model, tt.ratio)
			if (err != nil) != tt.wantErr {
				t.Fatalf("OpenAISizeFor() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("OpenAISizeFor() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestValidGeminiAspectRatio(t *testing.T) {
	if !ValidGeminiAspectRatio("16:9") {
		t.Error("16:9 should be valid")
	}
	if ValidGeminiAspectRatio("21:9") {
		t.Error("21:9 should be invalid")
	}
}

func BenchmarkIsLocalEndpoint(b *testing.B) {
	endpoint := "http://192.168.1.100:5000/v1"
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		IsLocalEndpoint(endpoint)
	}
}
