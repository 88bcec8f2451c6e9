package retention

import (
	"fmt"

	elfaeserr "github.com/elfaes-go/elfaes/errors"
)

func errNoCollaborator(kind string) error {
	return elfaeserr.New(elfaeserr.CodeRetentionConfig, elfaeserr.KindInvalidInput,
		fmt.Sprintf("no %s configured for this action", kind))
}
