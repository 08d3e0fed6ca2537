//go:build !unix

package health

func checkExecutable(string) error {
	return nil
}
