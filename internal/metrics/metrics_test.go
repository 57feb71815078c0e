package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"media-converter/internal/codec"
)

func TestMetricsExist(t *testing.T) {
	tests := []struct {
		name   string
		metric interface{}
	}{
		{"HTTPRequestsTotal", HTTPRequestsTotal},
		{"HTTPRequestDuration", HTTPRequestDuration},
		{"HTTPRequestsInFlight", HTTPRequestsInFlight},
		{"DBQueryTotal", DBQueryTotal},
		{"DBSizeBytes", DBSizeBytes},
		{"ConversionsTotal", ConversionsTotal},
		{"NegotiationsTotal", NegotiationsTotal},
		{"CaptureSessionsActive", CaptureSessionsActive},
		{"JobsByStatus", JobsByStatus},
		{"QueueDepth", QueueDepth},
		{"AppInfo", AppInfo},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.metric == nil {
				t.Errorf("%s metric is nil", tt.name)
			}
		})
	}
}

func TestInitializeMetrics(t *testing.T) {
	InitializeMetrics()

	// audio: 5 formats, video: 6 formats, 8 outcomes each
	if got := testutil.CollectAndCount(ConversionsTotal); got < 11*8 {
		t.Errorf("Expected at least %d conversion series, got %d", 11*8, got)
	}
	if got := testutil.CollectAndCount(JobsByStatus); got != 4 {
		t.Errorf("Expected 4 job status series, got %d", got)
	}
}

func TestConversionObserver(t *testing.T) {
	o := NewConversionObserver()

	before := testutil.ToFloat64(ConversionsTotal.WithLabelValues("audio", "MP3", "success"))
	o.ObserveConversion(codec.KindAudio, "MP3", "success", 1.5)
	if got := testutil.ToFloat64(ConversionsTotal.WithLabelValues("audio", "MP3", "success")); got != before+1 {
		t.Errorf("Expected conversions=%v, got %v", before+1, got)
	}

	before = testutil.ToFloat64(NegotiationsTotal.WithLabelValues("video", "none"))
	o.ObserveNegotiation(codec.KindVideo, false)
	if got := testutil.ToFloat64(NegotiationsTotal.WithLabelValues("video", "none")); got != before+1 {
		t.Errorf("Expected negotiations=%v, got %v", before+1, got)
	}

	active := testutil.ToFloat64(CaptureSessionsActive.WithLabelValues("video"))
	o.ObserveSessionStarted(codec.KindVideo)
	if got := testutil.ToFloat64(CaptureSessionsActive.WithLabelValues("video")); got != active+1 {
		t.Errorf("Expected active sessions=%v, got %v", active+1, got)
	}
	o.ObserveSessionClosed(codec.KindVideo)
	if got := testutil.ToFloat64(CaptureSessionsActive.WithLabelValues("video")); got != active {
		t.Errorf("Expected active sessions=%v, got %v", active, got)
	}

	o.ObserveSurfaces(3)
	if got := testutil.ToFloat64(SurfacesAttached); got != 3 {
		t.Errorf("Expected surfaces=3, got %v", got)
	}

	bytesBefore := testutil.ToFloat64(CapturedBytesTotal.WithLabelValues("audio"))
	o.ObserveCapturedBytes(codec.KindAudio, 1024)
	if got := testutil.ToFloat64(CapturedBytesTotal.WithLabelValues("audio")); got != bytesBefore+1024 {
		t.Errorf("Expected captured bytes=%v, got %v", bytesBefore+1024, got)
	}

	fallbacks := testutil.ToFloat64(FallbacksTotal.WithLabelValues("AAC"))
	o.ObserveFallback("AAC")
	if got := testutil.ToFloat64(FallbacksTotal.WithLabelValues("AAC")); got != fallbacks+1 {
		t.Errorf("Expected fallbacks=%v, got %v", fallbacks+1, got)
	}
}

func TestSetAppInfo(t *testing.T) {
	SetAppInfo("1.0.0", "abc123", "go1.25")
	if got := testutil.ToFloat64(AppInfo.WithLabelValues("1.0.0", "abc123", "go1.25")); got != 1 {
		t.Errorf("Expected app info=1, got %v", got)
	}
}

func TestFilesystemObserver(t *testing.T) {
	o := NewFilesystemObserver()

	before := testutil.ToFloat64(FilesystemStaleErrors.WithLabelValues("open"))
	o.ObserveStaleError("open")
	if got := testutil.ToFloat64(FilesystemStaleErrors.WithLabelValues("open")); got != before+1 {
		t.Errorf("Expected stale errors=%v, got %v", before+1, got)
	}

	success := testutil.ToFloat64(FilesystemRetries.WithLabelValues("remove", "success"))
	failure := testutil.ToFloat64(FilesystemRetries.WithLabelValues("remove", "failure"))
	o.ObserveRetryOutcome("remove", true, 0.1)
	o.ObserveRetryOutcome("remove", false, 0.6)
	if got := testutil.ToFloat64(FilesystemRetries.WithLabelValues("remove", "success")); got != success+1 {
		t.Errorf("Expected successes=%v, got %v", success+1, got)
	}
	if got := testutil.ToFloat64(FilesystemRetries.WithLabelValues("remove", "failure")); got != failure+1 {
		t.Errorf("Expected failures=%v, got %v", failure+1, got)
	}
}
