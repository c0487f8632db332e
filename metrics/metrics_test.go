package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManager(t *testing.T) {
	Convey("Given a metrics manager on its own registry", t, func() {
		registry := prometheus.NewRegistry()
		manager := NewManager(WithPrometheusRegistry(registry), WithNamespace("test"))

		Convey("When recording transactions", func() {
			manager.RecordTransaction("BuyInsurance", nil)
			manager.RecordTransaction("BuyInsurance", nil)
			manager.RecordTransaction("BuyInsurance", errors.New("premium exceeds cap"))

			Convey("Then outcomes are counted separately", func() {
				So(testutil.ToFloat64(manager.transactions.WithLabelValues("BuyInsurance", OutcomeOK)), ShouldEqual, 2)
				So(testutil.ToFloat64(manager.transactions.WithLabelValues("BuyInsurance", OutcomeRejected)), ShouldEqual, 1)
			})
		})

		Convey("When recording finalizations and payouts", func() {
			manager.RecordFinalization("LATE_AIRLINE")
			manager.RecordPayout()

			Convey("Then they are counted", func() {
				So(testutil.ToFloat64(manager.finalizations.WithLabelValues("LATE_AIRLINE")), ShouldEqual, 1)
				So(testutil.ToFloat64(manager.payouts), ShouldEqual, 1)
			})
		})
	})
}

func TestGlobalHandler(t *testing.T) {
	Convey("Given the global metrics", t, func() {
		So(func() {
			RecordTransaction("RegisterFlight", nil)
			RecordFinalization("ON_TIME")
			RecordPayout()
		}, ShouldNotPanic)

		Convey("When scraping the handler", func() {
			rec := httptest.NewRecorder()
			Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

			Convey("Then the chaincode counters are exposed", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(strings.Contains(rec.Body.String(), "flightsurety_chaincode_transactions_total"), ShouldBeTrue)
				So(strings.Contains(rec.Body.String(), "flightsurety_chaincode_payouts_total"), ShouldBeTrue)
			})
		})
	})
}
