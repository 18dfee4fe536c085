package config

import "testing"

func TestDefaultServerConfigHasNoWarnings(t *testing.T) {
	c:= DefaultServerConfig()
	if w:= c.GetConfigWarnings(); len(w) != 0 {
		t.Fatalf("unexpected warnings: %v", w)
	}
	if err:= c.ValidateConfig(); err != nil {
		t.Fatalf("ValidateConfig: %v", err)
	}
}

func TestServerConfigWarnsOnEmptyBind(t *testing.T) {
	c:= DefaultServerConfig().WithPlainAddr("")
	w:= c.GetConfigWarnings()
	if len(w) == 0 {
		t.Fatal("expected a warning for no bind addresses")
	}
}

func TestServerConfigWarnsOnTLSWithoutCert(t *testing.T) {
	c:= DefaultServerConfig()
	c.TLSAddr = ":8443"
	if !containsWarning(c.GetConfigWarnings(), "TLS bind address set without cert/key files") {
		t.Fatal("expected TLS-without-cert warning")
	}
}

func TestServerConfigIsSecure(t *testing.T) {
	c:= DefaultServerConfig().WithTLS(":8443", "cert.pem", "key.pem")
	if !c.IsSecure() {
		t.Fatal("expected IsSecure to be true once TLS fields are set")
	}
}

func TestWorkerBoundsWarning(t *testing.T) {
	c:= DefaultServerConfig().WithWorkerBounds(10, 4)
	if !containsWarning(c.GetConfigWarnings(), "worker pool cap is below its floor") {
		t.Fatal("expected worker pool cap/floor warning")
	}
}

func TestDefaultSessionConfigHasNoWarnings(t *testing.T) {
	c:= DefaultSessionConfig()
	if w:= c.GetConfigWarnings(); len(w) != 0 {
		t.Fatalf("unexpected warnings: %v", w)
	}
}

func TestSessionConfigWithEgressCaps(t *testing.T) {
	c:= DefaultSessionConfig().WithEgressCaps(1, 2)
	if c.EgressQueueCapScript != 1 || c.EgressQueueCapRIVA != 2 {
		t.Fatalf("got %+v", c)
	}
}

func containsWarning(warnings []string, want string) bool {
	for _, w:= range warnings {
		if w == want {
			return true
		}
	}
	return false
}
