package rohclog

import (
	"encoding/hex"

	"github.com/sirupsen/logrus"
)

// PacketDumper hex-dumps raw ROHC wire bytes at debug level when the
// engine's FeatureDumpPackets flag is set. It is a separate, deliberately
// minimal logrus logger rather than routed through the slog-based trace
// sink, since dumping is a one-off diagnostic capability distinct from
// structured tracing.
type PacketDumper struct {
	log *logrus.Logger
}

// NewPacketDumper builds a dumper that writes plain-text hex dumps to
// stderr at debug level.
func NewPacketDumper() *PacketDumper {
	l := logrus.New()
	l.SetLevel(logrus.DebugLevel)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return &PacketDumper{log: l}
}

// Dump logs label and the hex encoding of b, a no-op unless the dumper's
// level is at or below debug.
func (d *PacketDumper) Dump(label string, b []byte) {
	d.log.WithField("bytes", len(b)).Debugf("%s: %s", label, hex.EncodeToString(b))
}
