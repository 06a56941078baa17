package testhelpers

// LookupEnv returns a function with the signature of os.LookupEnv that serves values from env.
func LookupEnv(env map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}
