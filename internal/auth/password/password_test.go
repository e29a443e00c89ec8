package password

import "testing"

func TestHashAndCompare(t *testing.T) {
	hash, err := Hash("s3cret-pass")
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	if hash == "s3cret-pass" {
		t.Fatal("hash equals plaintext")
	}

	if err := Compare(hash, "s3cret-pass"); err != nil {
		t.Errorf("Compare rejected correct password: %v", err)
	}
	if err := Compare(hash, "wrong"); err == nil {
		t.Error("Compare accepted wrong password")
	}
}
