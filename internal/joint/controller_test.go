package joint

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/cablesim/internal/link"
)

var _ = ginkgo.Describe("Controller", func() {
	var (
		eng      *fakeEngine
		peers    *link.Registry
		a, b     *link.Peer
		ctrl     *Controller
		renderer *recordingRenderer
		events   []UnlinkEvent
	)

	ginkgo.BeforeEach(func() {
		eng = newFakeEngine()
		eng.addBody(1, 2.0, mgl64.Vec3{0, 0, 0})
		eng.addBody(2, 6.0, mgl64.Vec3{10, 0, 0})

		peers = link.NewRegistry()
		a = link.NewPeer("a", 1, "cable", "top", link.IdentityPose())
		b = link.NewPeer("b", 2, "cable", "top", link.IdentityPose())
		Expect(peers.Add(a)).To(Succeed())
		Expect(peers.Add(b)).To(Succeed())

		var err error
		ctrl, err = NewController(eng, peers, DefaultParams())
		Expect(err).NotTo(HaveOccurred())

		renderer = &recordingRenderer{}
		events = nil
		ctrl.Subscribe(func(ev UnlinkEvent) { events = append(events, ev) })
	})

	ginkgo.Describe("NewController", func() {
		ginkgo.It("rejects invalid parameters", func() {
			p := DefaultParams()
			p.Spring = -1
			_, err := NewController(eng, peers, p)
			Expect(err).To(MatchError(ErrInvalidParams))
		})
	})

	ginkgo.Describe("without a joint", func() {
		ginkgo.It("returns neutral readings", func() {
			Expect(ctrl.Phase()).To(Equal(NoJoint))
			Expect(ctrl.GetStretch()).To(BeZero())
			Expect(ctrl.Step()).To(Equal(Sample{}))
			Expect(ctrl.Runtime()).To(BeNil())
			_, ok := ctrl.Spec()
			Expect(ok).To(BeFalse())
			_, _, ok = ctrl.Peers()
			Expect(ok).To(BeFalse())
		})

		ginkgo.It("ignores drop, adjust and break signals", func() {
			ctrl.DropJoint()
			ctrl.AdjustJoint(true)
			ctrl.HandleBreak(9000)
			ctrl.Destroy()
			Expect(events).To(BeEmpty())
			Expect(ctrl.LastCause()).To(Equal(CauseNone))
		})
	})

	ginkgo.Describe("CreateJoint", func() {
		ginkgo.It("links the peers and builds the joint", func() {
			Expect(ctrl.CreateJoint(a, b, renderer)).To(Succeed())

			Expect(ctrl.Phase()).To(Equal(Active))
			Expect(a.State()).To(Equal(link.Linked))
			Expect(b.State()).To(Equal(link.Linked))
			Expect(a.OtherPeer()).To(BeIdenticalTo(b))

			spec, ok := ctrl.Spec()
			Expect(ok).To(BeTrue())
			Expect(spec.RestLength).To(BeNumerically("~", 10, 1e-9))
			Expect(spec.BreakForce).To(Equal(DefaultBreakForce))
			Expect(ctrl.Runtime().HeadMass()).To(Equal(4.0))
			Expect(renderer.last()).To(Equal(1.0))
		})

		ginkgo.It("fails without side effects when a peer is already linked", func() {
			c := link.NewPeer("c", 1, "cable", "bottom", link.IdentityPose())
			Expect(peers.Add(c)).To(Succeed())
			Expect(peers.Link(c, b)).To(Succeed())
			bodies, joints := len(eng.bodies), len(eng.joints)

			err := ctrl.CreateJoint(a, b, renderer)
			Expect(err).To(MatchError(link.ErrPeerUnavailable))
			Expect(ctrl.Phase()).To(Equal(NoJoint))
			Expect(a.State()).To(Equal(link.Available))
			Expect(b.OtherPeer()).To(BeIdenticalTo(c))
			Expect(eng.bodies).To(HaveLen(bodies))
			Expect(eng.joints).To(HaveLen(joints))
			Expect(renderer.ratios).To(BeEmpty())
		})

		ginkgo.It("refuses a second joint", func() {
			c := link.NewPeer("c", 2, "cable", "bottom", link.IdentityPose())
			Expect(peers.Add(c)).To(Succeed())
			Expect(ctrl.CreateJoint(a, b, nil)).To(Succeed())
			Expect(ctrl.CreateJoint(a, c, nil)).To(MatchError(ErrJointExists))
			Expect(c.State()).To(Equal(link.Available))
		})

		ginkgo.It("leaves the peers available when the engine refuses", func() {
			eng.failFixed = true
			Expect(ctrl.CreateJoint(a, b, renderer)).NotTo(Succeed())
			Expect(a.State()).To(Equal(link.Available))
			Expect(b.State()).To(Equal(link.Available))
			Expect(eng.bodies).To(HaveLen(2))
			Expect(eng.joints).To(BeEmpty())
		})

		ginkgo.It("honours the unbreakable option", func() {
			ctrl, err := NewController(eng, peers, DefaultParams(), WithUnbreakable(true))
			Expect(err).NotTo(HaveOccurred())
			Expect(ctrl.CreateJoint(a, b, nil)).To(Succeed())
			spec, _ := ctrl.Spec()
			Expect(math.IsInf(spec.BreakForce, 1)).To(BeTrue())
			Expect(math.IsInf(spec.BreakTorque, 1)).To(BeTrue())
		})
	})

	ginkgo.Context("with an active joint", func() {
		ginkgo.BeforeEach(func() {
			Expect(ctrl.CreateJoint(a, b, renderer)).To(Succeed())
		})

		ginkgo.It("round-trips through DropJoint", func() {
			ctrl.DropJoint()

			Expect(ctrl.Phase()).To(Equal(NoJoint))
			Expect(ctrl.LastCause()).To(Equal(CauseCommanded))
			Expect(a.State()).To(Equal(link.Available))
			Expect(b.State()).To(Equal(link.Available))
			Expect(eng.bodies).To(HaveLen(2))
			Expect(eng.joints).To(BeEmpty())
			Expect(renderer.last()).To(Equal(1.0))
			Expect(events).To(HaveLen(1))
			Expect(events[0].Cause).To(Equal(CauseCommanded))
			Expect(events[0].Source).To(Equal("a"))
			Expect(events[0].Target).To(Equal("b"))
		})

		ginkgo.It("drops only once", func() {
			ctrl.DropJoint()
			ctrl.DropJoint()
			Expect(events).To(HaveLen(1))
			Expect(eng.removedJoints).To(HaveLen(2))
			Expect(eng.removedBodies).To(HaveLen(1))
		})

		ginkgo.It("can link again after a drop", func() {
			ctrl.DropJoint()
			Expect(ctrl.CreateJoint(a, b, nil)).To(Succeed())
			Expect(ctrl.Phase()).To(Equal(Active))
		})

		ginkgo.It("measures stretch as the target moves away", func() {
			eng.move(2, mgl64.Vec3{11, 0, 0})
			s := ctrl.Step()
			Expect(s.Ratio).To(BeNumerically("~", 0.1, 1e-9))
			Expect(ctrl.GetStretch()).To(BeNumerically("~", 0.1, 1e-9))
			Expect(renderer.last()).To(BeNumerically("~", 11.0/10.0, 1e-9))

			eng.move(2, mgl64.Vec3{9, 0, 0})
			Expect(ctrl.Step().Ratio).To(BeZero())
			Expect(renderer.last()).To(Equal(1.0))
		})

		ginkgo.It("tears down on a physics break", func() {
			eng.move(2, mgl64.Vec3{12, 0, 0})
			ctrl.Step()
			eng.breakJoint(ctrl.Runtime().SpringJoint(), 5000)

			Expect(ctrl.Phase()).To(Equal(NoJoint))
			Expect(ctrl.LastCause()).To(Equal(CausePhysics))
			Expect(a.State()).To(Equal(link.Available))
			Expect(b.State()).To(Equal(link.Available))
			Expect(events).To(HaveLen(1))
			Expect(events[0].Force).To(Equal(5000.0))
			Expect(events[0].Last.Ratio).To(BeNumerically("~", 0.2, 1e-9))
			Expect(eng.bodies).To(HaveLen(2))
		})

		ginkgo.It("ignores a repeated break", func() {
			spring := ctrl.Runtime().SpringJoint()
			listener := eng.joints[spring].dist.OnBreak
			eng.breakJoint(spring, 5000)
			listener(5000)
			Expect(events).To(HaveLen(1))
		})

		ginkgo.It("ignores a break fired while dropping", func() {
			eng.breakOnRemove = true
			ctrl.DropJoint()
			Expect(events).To(HaveLen(1))
			Expect(ctrl.LastCause()).To(Equal(CauseCommanded))
		})

		ginkgo.It("ignores a stale listener from a previous joint", func() {
			stale := eng.joints[ctrl.Runtime().SpringJoint()].dist.OnBreak
			ctrl.DropJoint()
			Expect(ctrl.CreateJoint(a, b, nil)).To(Succeed())
			stale(9000)
			Expect(ctrl.Phase()).To(Equal(Active))
		})

		ginkgo.It("adjusts break limits in place", func() {
			ctrl.AdjustJoint(true)
			spring := eng.joints[ctrl.Runtime().SpringJoint()].dist
			Expect(math.IsInf(spring.BreakForce, 1)).To(BeTrue())
			Expect(math.IsInf(spring.BreakTorque, 1)).To(BeTrue())

			ctrl.AdjustJoint(false)
			Expect(spring.BreakForce).To(Equal(DefaultBreakForce))
			spec, _ := ctrl.Spec()
			Expect(spec.BreakTorque).To(Equal(DefaultBreakTorque))
		})

		ginkgo.It("drops with CauseDestroyed when a body goes away", func() {
			ctrl.Destroy()
			Expect(ctrl.LastCause()).To(Equal(CauseDestroyed))
			Expect(a.IsLinked()).To(BeFalse())
		})
	})
})
