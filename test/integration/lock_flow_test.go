//go:build integration

package integration

import (
	"context"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/app_lock/internal/daemon"
	"github.com/eliteGoblin/focusd/app_lock/internal/domain"
	"github.com/eliteGoblin/focusd/app_lock/internal/infra"
	"github.com/eliteGoblin/focusd/app_lock/internal/monitor"
	"github.com/eliteGoblin/focusd/app_lock/internal/policy"
	"github.com/eliteGoblin/focusd/app_lock/internal/usecase"
	"github.com/eliteGoblin/focusd/app_lock/test/fixtures"
)

const (
	photos   domain.AppID = "com.example.photos"
	launcher domain.AppID = "launcher"
)

var fastHash = infra.HashParams{Memory: 1024, Time: 1, Threads: 1, SaltLen: 16, KeyLen: 32}

var _ = Describe("Lock flow against the encrypted store", func() {
	var (
		dataDir  string
		key      []byte
		store    *infra.KVStore
		locks    *infra.LockStore
		creds    *infra.PinCredentialStore
		recorder *fixtures.Recorder
		engine   *usecase.Engine
		logger   *zap.Logger
	)

	BeforeEach(func() {
		var err error
		logger = zap.NewNop()
		dataDir = GinkgoT().TempDir()

		key, err = infra.GenerateKey()
		Expect(err).NotTo(HaveOccurred())
		store, err = infra.NewKVStore(dataDir, key)
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(store.Close)

		locks, err = infra.NewLockStore(store, logger)
		Expect(err).NotTo(HaveOccurred())
		creds = infra.NewPinCredentialStoreWithParams(store, fastHash, logger)
		recorder = fixtures.NewRecorder()

		engine = usecase.NewEngine(
			usecase.DefaultEngineConfig(),
			locks,
			creds,
			policy.NewClassifier("applock", policy.NewRegistry()),
			recorder.Collaborators(),
			fixtures.InlineScheduler{},
			logger,
		)

		Expect(engine.SetLockedApps([]domain.AppID{photos})).To(Succeed())
		Expect(engine.SetMonitoringEnabled(true)).To(Succeed())
	})

	Describe("opening a locked app", func() {
		It("suppresses the app and then presents the gate", func() {
			d := engine.Decide(domain.SwitchEvent{Previous: launcher, Current: photos})

			Expect(d.Action).To(Equal(domain.ActionInterceptAndGate))
			Expect(d.Target).To(Equal(photos))
			Expect(recorder.Calls()).To(Equal([]string{"suppress", "gate:" + string(photos)}))
		})
	})

	Describe("entering the correct PIN", func() {
		BeforeEach(func() {
			Expect(engine.SetPin("1234")).To(Succeed())
		})

		It("unlocks, grants the grace window and resumes the app", func() {
			gate := engine.OpenGate(photos)

			for _, d := range []int{1, 2, 3} {
				r, err := gate.PressDigit(d)
				Expect(err).NotTo(HaveOccurred())
				Expect(r.Outcome).To(Equal(domain.GatePending))
				Expect(gate.State()).To(Equal(usecase.StateCollecting))
			}
			result, err := gate.PressDigit(4)
			Expect(err).NotTo(HaveOccurred())

			Expect(result.Outcome).To(Equal(domain.GateUnlocked))
			Expect(result.ResumeErr).NotTo(HaveOccurred())
			Expect(gate.State()).To(Equal(usecase.StateUnlocked))
			Expect(locks.IsTemporarilyUnlocked(photos)).To(BeTrue())
			Expect(recorder.Calls()).To(ContainElement("resume:" + string(photos)))

			By("persisting the grace window for other processes")
			set, err := store.GetStringSet(infra.KeyTemporarilyUnlocked)
			Expect(err).NotTo(HaveOccurred())
			Expect(set).To(ConsistOf(string(photos)))
		})

		Describe("switching away re-arms the lock", func() {
			It("intercepts the app again on the next visit", func() {
				gate := engine.OpenGate(photos)
				for _, d := range []int{1, 2, 3, 4} {
					_, err := gate.PressDigit(d)
					Expect(err).NotTo(HaveOccurred())
				}
				recorder.Reset()

				d := engine.Decide(domain.SwitchEvent{Previous: photos, Current: launcher})
				Expect(d.Rearmed).To(Equal(photos))
				Expect(d.Action).To(Equal(domain.ActionAllow))
				Expect(locks.TemporarilyUnlocked()).To(BeEmpty())

				d = engine.Decide(domain.SwitchEvent{Previous: launcher, Current: photos})
				Expect(d.Action).To(Equal(domain.ActionInterceptAndGate))
				Expect(recorder.Calls()).To(Equal([]string{"suppress", "gate:" + string(photos)}))
			})
		})
	})

	Describe("entering a wrong PIN", func() {
		It("rejects, clears the buffer and keeps the session open", func() {
			Expect(engine.SetPin("1234")).To(Succeed())
			gate := engine.OpenGate(photos)

			var result domain.GateResult
			for _, d := range []int{9, 9, 9, 9} {
				var err error
				result, err = gate.PressDigit(d)
				Expect(err).NotTo(HaveOccurred())
			}

			Expect(result.Outcome).To(Equal(domain.GateRejected))
			Expect(result.Reason).To(Equal(domain.RejectWrongPin))
			Expect(gate.Len()).To(BeZero())
			Expect(gate.State()).To(Equal(usecase.StateCollecting))
			Expect(locks.IsTemporarilyUnlocked(photos)).To(BeFalse())
		})
	})

	Context("when no PIN has been configured", func() {
		It("never unlocks", func() {
			gate := engine.OpenGate(photos)

			var result domain.GateResult
			for _, d := range []int{0, 0, 0, 0} {
				result, _ = gate.PressDigit(d)
			}

			Expect(result.Reason).To(Equal(domain.RejectNoCredential))
			Expect(gate.State()).NotTo(Equal(usecase.StateUnlocked))
		})
	})

	Context("when another process changes the store", func() {
		var otherLocks *infra.LockStore

		BeforeEach(func() {
			other, err := infra.NewKVStore(dataDir, key)
			Expect(err).NotTo(HaveOccurred())
			DeferCleanup(other.Close)

			otherLocks, err = infra.NewLockStore(other, logger)
			Expect(err).NotTo(HaveOccurred())
		})

		It("sees a grace window granted by the gate on the next decision", func() {
			Expect(otherLocks.AddTemporaryUnlock(photos)).To(Succeed())

			d := engine.Decide(domain.SwitchEvent{Previous: launcher, Current: photos})
			Expect(d.Action).To(Equal(domain.ActionAllow))
			Expect(d.Reason).To(Equal(domain.AllowGraceWindow))
		})

		It("stops intercepting as soon as monitoring is turned off", func() {
			Expect(otherLocks.SetMonitoringEnabled(false)).To(Succeed())

			d := engine.Decide(domain.SwitchEvent{Previous: launcher, Current: photos})
			Expect(d.Reason).To(Equal(domain.AllowMonitoringDisabled))
			Expect(recorder.Calls()).To(BeEmpty())
		})

		It("keeps an unlock added while the daemon re-arms another app", func() {
			notes := domain.AppID("com.example.notes")
			Expect(engine.SetLockedApps([]domain.AppID{photos, notes})).To(Succeed())
			Expect(engine.TemporarilyUnlock(photos)).To(Succeed())

			Expect(otherLocks.AddTemporaryUnlock(notes)).To(Succeed())
			d := engine.Decide(domain.SwitchEvent{Previous: photos, Current: launcher})
			Expect(d.Rearmed).To(Equal(photos))

			set, err := store.GetStringSet(infra.KeyTemporarilyUnlocked)
			Expect(err).NotTo(HaveOccurred())
			Expect(set).To(ConsistOf(string(notes)))
		})

		It("picks up a new lock set on Refresh", func() {
			notes := domain.AppID("com.example.notes")
			Expect(otherLocks.SetLockedApps([]domain.AppID{notes})).To(Succeed())

			Expect(locks.IsLocked(notes)).To(BeFalse())
			Expect(engine.Refresh()).To(Succeed())
			Expect(locks.IsLocked(notes)).To(BeTrue())
		})
	})

	Context("when the service reads events from a stream", func() {
		It("intercepts the locked app and clears its record on exit", func() {
			lines := strings.Join([]string{
				`{"kind":"window_state_changed","package_name":"launcher"}`,
				`not json`,
				`{"kind":"view_clicked","package_name":"com.example.photos"}`,
				`{"kind":"window_state_changed","package_name":"com.example.photos"}`,
				`{"kind":"window_state_changed","package_name":"com.example.photos"}`,
			}, "\n")

			svc := daemon.NewService(
				daemon.DefaultServiceConfig(),
				infra.NewStreamSource(strings.NewReader(lines), logger),
				monitor.NewForeground(logger),
				engine,
				store,
				nil,
				infra.NewProcessManager(),
				logger,
			)

			var notified []string
			unsubscribe := svc.Subscribe(func(n domain.Notification) {
				notified = append(notified, n.PackageName)
			})
			defer unsubscribe()

			Expect(svc.Run(context.Background())).To(Succeed())

			Expect(recorder.Calls()).To(Equal([]string{"suppress", "gate:" + string(photos)}))
			Expect(notified).To(Equal([]string{"launcher", string(photos)}))

			rec, err := store.GetMonitor()
			Expect(err).NotTo(HaveOccurred())
			Expect(rec).To(BeNil())
		})
	})
})
