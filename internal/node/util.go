package node

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/indranet/indra/internal/ids"
)

// nowFunc is indirected so tests can observe deterministic behavior
// without the rest of the package needing to thread a clock through.
var nowFunc = time.Now

func loggerFields(realmID ids.RealmId, err error) logrus.Fields {
	return logrus.Fields{"realm": realmID, "err": err}
}
