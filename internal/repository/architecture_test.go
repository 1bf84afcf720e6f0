package repository

import (
	"testing"

	"bikerental/testutil"
)

func TestRepositoryIsBackendAgnostic(t *testing.T) {
	testutil.AssertNoDirectImports(t, ".", testutil.DriverImportForbidden,
		"repositories work against the document store interface only")
}
