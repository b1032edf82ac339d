package controller

import (
	"time"

	"github.com/btvirt/btvirt"
	"github.com/btvirt/btvirt/hci"
	"github.com/btvirt/btvirt/hci/evt"
	"github.com/btvirt/btvirt/ll"
	"github.com/btvirt/btvirt/model/scheduler"
)

// StartInquiry begins an inquiry that completes after timeout. Emission of
// the inquiry packets rides on TimerTick.
func (c *LinkLayerController) StartInquiry(timeout time.Duration) {
	c.everInquired = false
	c.inquiryTimer = c.ScheduleTask(timeout, c.inquiryTimeout)
}

// InquiryCancel stops a running inquiry without a completion event.
func (c *LinkLayerController) InquiryCancel() {
	if c.inquiryTimer == scheduler.InvalidTaskID {
		return
	}
	c.CancelScheduledTask(c.inquiryTimer)
	c.inquiryTimer = scheduler.InvalidTaskID
}

func (c *LinkLayerController) inquiryTimeout() {
	if c.inquiryTimer != scheduler.InvalidTaskID {
		c.inquiryTimer = scheduler.InvalidTaskID
		c.emitEvent(evt.InquiryComplete{Status: hci.Success})
	}
}

// SetInquiryMode selects which inquiry-response variant peers should send.
func (c *LinkLayerController) SetInquiryMode(mode uint8) {
	c.inquiryMode = ll.InquiryType(mode)
}

func (c *LinkLayerController) SetInquiryLAP(lap uint64) {
	c.inquiryLap = lap
}

func (c *LinkLayerController) SetInquiryMaxResponses(max uint8) {
	c.inquiryMaxResponses = max
}

func (c *LinkLayerController) SetInquiryScanEnable(enable bool) {
	c.inquiryScansEnabled = enable
}

func (c *LinkLayerController) SetPageScanEnable(enable bool) {
	c.pageScansEnabled = enable
}

// inquiry broadcasts an inquiry packet at most once per emission window.
func (c *LinkLayerController) inquiry() {
	now := c.now()
	if c.everInquired && now.Sub(c.lastInquiry) < inquiryEmitWindow {
		return
	}

	c.sendLinkLayerPacket(ll.NewInquiry(c.props.Address, btvirt.AddressEmpty, c.inquiryMode))
	c.lastInquiry = now
	c.everInquired = true
}
